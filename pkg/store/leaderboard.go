package store

import (
	"sort"
	"time"
)

// LeaderboardEntry is one player's computed standing. WeightedAverage is
// TotalScore/TotalLegs; percentages are 0 when their denominator is 0.
type LeaderboardEntry struct {
	Rank            int     `json:"rank"`
	Name            string  `json:"name"`
	WeightedAverage float64 `json:"weighted_average"`
	TotalMatches    int     `json:"total_matches"`
	MatchesWon      int     `json:"matches_won"`
	WinPercent      float64 `json:"win_percent"`
	TotalLegs       int     `json:"total_legs"`
	Total180s       int     `json:"total_180s"`
	Total160Plus    int     `json:"total_160_plus"`
	Total140Plus    int     `json:"total_140_plus"`
	Total100Plus    int     `json:"total_100_plus"`
	HighestFinish   int     `json:"highest_finish"`
	CheckoutPercent float64 `json:"checkout_percent"`
	EventsPlayed    int     `json:"events_played"`
}

// Leaderboard computes standings for every player, ordered by weighted
// three-dart average descending, events played descending as the
// tiebreaker. Ranks are dense: equal sort keys share a rank.
func (s *Store) Leaderboard() []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(s.data.Players))
	for _, p := range s.data.Players {
		entry := LeaderboardEntry{
			Name:          p.Name,
			TotalMatches:  p.TotalMatches,
			MatchesWon:    p.MatchesWon,
			TotalLegs:     p.TotalLegs,
			Total180s:     p.Total180s,
			Total160Plus:  p.Total160Plus,
			Total140Plus:  p.Total140Plus,
			Total100Plus:  p.Total100Plus,
			HighestFinish: p.HighestFinish,
			EventsPlayed:  len(p.EventsPlayed),
		}
		if p.TotalLegs > 0 {
			entry.WeightedAverage = p.TotalScore / float64(p.TotalLegs)
		}
		if p.TotalMatches > 0 {
			entry.WinPercent = float64(p.MatchesWon) / float64(p.TotalMatches) * 100
		}
		if p.TotalDoubleAttempts > 0 {
			entry.CheckoutPercent = float64(p.TotalDoublesHit) / float64(p.TotalDoubleAttempts) * 100
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].WeightedAverage != entries[j].WeightedAverage {
			return entries[i].WeightedAverage > entries[j].WeightedAverage
		}
		if entries[i].EventsPlayed != entries[j].EventsPlayed {
			return entries[i].EventsPlayed > entries[j].EventsPlayed
		}
		return entries[i].Name < entries[j].Name
	})

	rank := 0
	for i := range entries {
		if i == 0 || entries[i].WeightedAverage != entries[i-1].WeightedAverage ||
			entries[i].EventsPlayed != entries[i-1].EventsPlayed {
			rank++
		}
		entries[i].Rank = rank
	}
	return entries
}

// Snapshot is the full-store export consumed by display frontends.
type Snapshot struct {
	Players      []LeaderboardEntry `json:"players"`
	TotalMatches int                `json:"total_matches"`
	Events       []EventMetadata    `json:"events"`
	LastUpdated  time.Time          `json:"last_updated"`
}

// Export returns the leaderboard, events and counters as one document.
func (s *Store) Export() Snapshot {
	return Snapshot{
		Players:      s.Leaderboard(),
		TotalMatches: s.data.Metadata.TotalMatches,
		Events:       s.EventsSummary(),
		LastUpdated:  s.data.Metadata.LastUpdated,
	}
}
