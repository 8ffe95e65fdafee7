// Package seeding ranks round-robin groups and generates knockout
// brackets using the league's crossover rules.
package seeding

import (
	"fmt"
	"sort"
)

// Player is one standing row used for ranking and seeding.
type Player struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	LegsWon    int     `json:"legs_won"`
	LegsLost   int     `json:"legs_lost"`
	Average3DA float64 `json:"average_3da"`
}

// LegDifference is legs won minus legs lost.
func (p Player) LegDifference() int {
	return p.LegsWon - p.LegsLost
}

// Matchup pairs two players for a knockout match.
type Matchup struct {
	Home Player `json:"home"`
	Away Player `json:"away"`
}

// RankGroup orders a round-robin group by wins, then leg difference,
// then three-dart average, all descending. Head-to-head is not applied.
// The input slice is not modified.
func RankGroup(players []Player) []Player {
	ranked := append([]Player{}, players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Wins != ranked[j].Wins {
			return ranked[i].Wins > ranked[j].Wins
		}
		if ranked[i].LegDifference() != ranked[j].LegDifference() {
			return ranked[i].LegDifference() > ranked[j].LegDifference()
		}
		return ranked[i].Average3DA > ranked[j].Average3DA
	})
	return ranked
}

// TopN returns the first n players of an already ranked list, or the
// whole list when it is shorter.
func TopN(ranked []Player, n int) []Player {
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// Quarterfinals generates the crossover quarterfinal matchups from two
// ranked groups: A1 vs B4, B2 vs A3, B1 vs A4, A2 vs B3.
func Quarterfinals(groupA, groupB []Player) ([]Matchup, error) {
	if len(groupA) < 4 || len(groupB) < 4 {
		return nil, fmt.Errorf("crossover seeding needs top 4 from each group, got %d and %d",
			len(groupA), len(groupB))
	}
	return []Matchup{
		{Home: groupA[0], Away: groupB[3]},
		{Home: groupB[1], Away: groupA[2]},
		{Home: groupB[0], Away: groupA[3]},
		{Home: groupA[1], Away: groupB[2]},
	}, nil
}

// Semifinals pairs the four quarterfinal winners in bracket order:
// QF1 winner vs QF2 winner, QF3 winner vs QF4 winner.
func Semifinals(qfWinners []Player) ([]Matchup, error) {
	if len(qfWinners) != 4 {
		return nil, fmt.Errorf("semifinal seeding needs exactly 4 quarterfinal winners, got %d",
			len(qfWinners))
	}
	return []Matchup{
		{Home: qfWinners[0], Away: qfWinners[1]},
		{Home: qfWinners[2], Away: qfWinners[3]},
	}, nil
}

// RoundRobinSchedule generates every pairing within a group, each pair
// playing once.
func RoundRobinSchedule(players []Player) []Matchup {
	var matches []Matchup
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			matches = append(matches, Matchup{Home: players[i], Away: players[j]})
		}
	}
	return matches
}

// ChampionsBracket is the Tournament of Champions structure: one
// round-robin group of the six event winners, top 4 advancing.
type ChampionsBracket struct {
	RoundRobin   []Matchup `json:"round_robin_matches"`
	TotalMatches int       `json:"total_matches"`
}

// ChampionsRoundRobin builds the Tournament of Champions round-robin
// from the six event winners.
func ChampionsRoundRobin(eventWinners []Player) (ChampionsBracket, error) {
	if len(eventWinners) != 6 {
		return ChampionsBracket{}, fmt.Errorf("tournament of champions needs exactly 6 players, got %d",
			len(eventWinners))
	}
	matches := RoundRobinSchedule(eventWinners)
	return ChampionsBracket{
		RoundRobin:   matches,
		TotalMatches: len(matches),
	}, nil
}

// ChampionsSemifinals pairs the top 4 of the champions round-robin as
// 1 vs 4 and 2 vs 3.
func ChampionsSemifinals(ranked []Player) ([]Matchup, error) {
	if len(ranked) < 4 {
		return nil, fmt.Errorf("champions semifinals need top 4 players, got %d", len(ranked))
	}
	return []Matchup{
		{Home: ranked[0], Away: ranked[3]},
		{Home: ranked[1], Away: ranked[2]},
	}, nil
}
