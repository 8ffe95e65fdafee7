// Package store keeps durable per-player cumulative statistics and
// per-event metadata across an unbounded series of uploads, and prevents
// the same match recap from being counted twice.
//
// Persistence is one JSON document rewritten in full on every accepted
// call. There is no transactional isolation: the store assumes a single
// writer per file, serialized externally.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

const documentVersion = "1.0.0"

// ErrValidation reports a call rejected before any I/O for missing
// required identifiers.
var ErrValidation = errors.New("missing required identifier")

// PlayerAggregate is one player's cumulative record. TotalScore is the
// legs-weighted sum of per-match averages; the weighted three-dart
// average is always recomputed as TotalScore/TotalLegs on read and never
// stored as a mean of means.
type PlayerAggregate struct {
	Name                string                   `json:"name"`
	TotalLegs           int                      `json:"total_legs"`
	TotalScore          float64                  `json:"total_score"`
	TotalMatches        int                      `json:"total_matches"`
	MatchesWon          int                      `json:"matches_won"`
	Total180s           int                      `json:"total_180s"`
	Total160Plus        int                      `json:"total_160_plus"`
	Total140Plus        int                      `json:"total_140_plus"`
	Total100Plus        int                      `json:"total_100_plus"`
	HighestFinish       int                      `json:"highest_finish"`
	TotalDoubleAttempts int                      `json:"total_double_attempts"`
	TotalDoublesHit     int                      `json:"total_doubles_hit"`
	EventsPlayed        []string                 `json:"events_played"`
	EventHistory        []EventHistoryEntry      `json:"event_history"`
}

// EventHistoryEntry is one immutable append-only record of a stat
// submission, including the stats exactly as submitted.
type EventHistoryEntry struct {
	EventID string                  `json:"event_id"`
	Date    time.Time               `json:"date"`
	Stats   models.PlayerMatchStats `json:"stats"`
}

// EventMetadata describes one event in the series.
type EventMetadata struct {
	EventID     string    `json:"event_id"`
	Date        time.Time `json:"date"`
	Players     []string  `json:"players"`
	Winner      string    `json:"winner,omitempty"`
	IsQualifier bool      `json:"is_qualifier"`
}

type metadata struct {
	LastUpdated  time.Time `json:"last_updated"`
	TotalMatches int       `json:"total_matches"`
	Version      string    `json:"version"`
}

// document is the full persisted state. ScrapedMatches is the scrape
// ledger: a URL present there must never be re-applied to aggregates.
type document struct {
	Players        map[string]*PlayerAggregate `json:"players"`
	Events         map[string]*EventMetadata   `json:"events"`
	ScrapedMatches []string                    `json:"scraped_matches"`
	Metadata       metadata                    `json:"metadata"`
}

// Store is the aggregation store. Construct one per file with Open; it
// is not safe for concurrent use.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	data   document
	ledger map[string]bool
}

// Open loads the store document at path, creating a fresh one if the
// file does not exist. An unreadable document is logged and replaced
// rather than failing startup.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s := &Store{
		path:   path,
		logger: logger,
		now:    time.Now,
		ledger: make(map[string]bool),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.data = freshDocument()
	case err != nil:
		return nil, fmt.Errorf("reading store document: %w", err)
	default:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			logger.Warn("store document unreadable, starting fresh", "path", path, "error", err)
			s.data = freshDocument()
		}
	}

	if s.data.Players == nil {
		s.data.Players = make(map[string]*PlayerAggregate)
	}
	if s.data.Events == nil {
		s.data.Events = make(map[string]*EventMetadata)
	}
	for _, url := range s.data.ScrapedMatches {
		s.ledger[url] = true
	}
	return s, nil
}

func freshDocument() document {
	return document{
		Players: make(map[string]*PlayerAggregate),
		Events:  make(map[string]*EventMetadata),
		Metadata: metadata{
			Version: documentVersion,
		},
	}
}

// NormalizePlayerName trims surrounding whitespace. The trimmed name is
// the identity key: casing and punctuation variants are distinct
// players, a known limitation of the upstream data.
func NormalizePlayerName(name string) string {
	return strings.TrimSpace(name)
}

// RecordMatch folds one player's stats for one match into the
// aggregates.
//
// The returned applied flag says whether the stats were folded into the
// in-memory aggregates. A duplicate matchURL returns (false, nil). A
// persistence failure returns (true, err): applied in memory but not on
// disk, so callers can tell the two apart.
//
// The ledger is keyed by matchURL alone: the first call for a URL marks
// it for all later calls, so the caller must invoke RecordMatch once per
// player before moving to the next match, never once per match.
func (s *Store) RecordMatch(playerName, eventID string, stats models.PlayerMatchStats, matchURL string) (bool, error) {
	playerName = NormalizePlayerName(playerName)
	if playerName == "" || eventID == "" {
		return false, fmt.Errorf("%w: player name and event id are required", ErrValidation)
	}

	if matchURL != "" {
		if s.ledger[matchURL] {
			s.logger.Info("match already recorded, skipping to prevent double counting",
				"url", matchURL, "player", playerName)
			return false, nil
		}
		s.ledger[matchURL] = true
		s.data.ScrapedMatches = append(s.data.ScrapedMatches, matchURL)
	}

	player, ok := s.data.Players[playerName]
	if !ok {
		player = &PlayerAggregate{Name: playerName}
		s.data.Players[playerName] = player
	}

	if !contains(player.EventsPlayed, eventID) {
		player.EventsPlayed = append(player.EventsPlayed, eventID)
	}

	legs := stats.LegsPlayed
	player.TotalLegs += legs
	player.TotalScore += stats.ThreeDartAverage * float64(legs)

	player.TotalMatches++
	player.MatchesWon += stats.MatchWon

	player.Total180s += stats.Count180s
	player.Total160Plus += stats.Count160Plus
	player.Total140Plus += stats.Count140Plus
	player.Total100Plus += stats.Count100Plus

	player.TotalDoubleAttempts += stats.DoubleAttempts
	player.TotalDoublesHit += stats.DoublesHit

	if stats.HighestFinish > player.HighestFinish {
		player.HighestFinish = stats.HighestFinish
	}

	player.EventHistory = append(player.EventHistory, EventHistoryEntry{
		EventID: eventID,
		Date:    s.now(),
		Stats:   stats,
	})

	event, ok := s.data.Events[eventID]
	if !ok {
		event = &EventMetadata{
			EventID:     eventID,
			Date:        s.now(),
			IsQualifier: true, // qualifier unless told otherwise
		}
		s.data.Events[eventID] = event
	}
	if !contains(event.Players, playerName) {
		event.Players = append(event.Players, playerName)
	}

	s.data.Metadata.TotalMatches++

	if err := s.save(); err != nil {
		// Accepted inconsistency: the in-memory state is already
		// mutated, including the ledger entry.
		s.logger.Error("persisting store failed", "path", s.path, "error", err)
		return true, err
	}
	return true, nil
}

// SetEventWinner records the event winner and whether the event counts
// as a qualifier.
func (s *Store) SetEventWinner(eventID, winner string, isQualifier bool) error {
	if eventID == "" {
		return fmt.Errorf("%w: event id is required", ErrValidation)
	}
	event, ok := s.data.Events[eventID]
	if !ok {
		event = &EventMetadata{EventID: eventID, Date: s.now()}
		s.data.Events[eventID] = event
	}
	event.Winner = winner
	event.IsQualifier = isQualifier
	return s.save()
}

// Recorded reports whether matchURL is already in the scrape ledger.
func (s *Store) Recorded(matchURL string) bool {
	return s.ledger[matchURL]
}

// Player returns the aggregate for a (normalized) player name.
func (s *Store) Player(name string) (*PlayerAggregate, bool) {
	player, ok := s.data.Players[NormalizePlayerName(name)]
	return player, ok
}

// EventsSummary lists every known event ordered by identifier.
func (s *Store) EventsSummary() []EventMetadata {
	events := make([]EventMetadata, 0, len(s.data.Events))
	for _, event := range s.data.Events {
		events = append(events, *event)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].EventID < events[j].EventID
	})
	return events
}

// TotalMatches returns how many stat submissions have been accepted.
func (s *Store) TotalMatches() int {
	return s.data.Metadata.TotalMatches
}

// Backup writes a timestamped copy of the persisted document next to it
// and returns the copy's path.
func (s *Store) Backup() (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("reading store document: %w", err)
	}
	backupPath := fmt.Sprintf("%s.backup_%s", s.path, s.now().Format("20060102_150405"))
	if err := os.WriteFile(backupPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return backupPath, nil
}

// save rewrites the whole document synchronously.
func (s *Store) save() error {
	s.data.Metadata.LastUpdated = s.now()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store document: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("writing store document: %w", err)
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
