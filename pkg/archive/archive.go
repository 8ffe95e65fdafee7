// Package archive persists discovered matches per event in several
// formats: timestamped JSON snapshots, a CSV export with per-match
// status tracking, a human-readable listing and a metadata descriptor.
// Re-archiving merges against the latest snapshot by match URL.
package archive

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

const (
	rawDirName   = "raw_data"
	csvDirName   = "csv"
	statsDirName = "stats"

	metadataFileName = "metadata.json"
	listingFileName  = "match_urls.txt"
)

var csvHeader = []string{
	"match_number", "match_type", "phase", "group_name",
	"url", "title", "status", "scraped_at",
}

// ErrEventNotFound is returned when an event has never been archived.
var ErrEventNotFound = errors.New("event not archived")

// matchesDocument is the structured snapshot written per save.
type matchesDocument struct {
	EventID    string                  `json:"event_id"`
	Timestamp  string                  `json:"timestamp"`
	MatchCount int                     `json:"match_count"`
	NewMatches int                     `json:"new_matches"`
	Matches    []models.MatchReference `json:"matches"`
}

type metadataFiles struct {
	RawAPIResponse string `json:"raw_api_response,omitempty"`
	MatchesJSON    string `json:"matches_json"`
	MatchesCSV     string `json:"matches_csv"`
	MatchURLs      string `json:"match_urls"`
}

type metadataDocument struct {
	EventID         string        `json:"event_id"`
	CreatedAt       string        `json:"created_at"`
	MatchCount      int           `json:"match_count"`
	RoundRobinCount int           `json:"round_robin_count"`
	KnockoutCount   int           `json:"knockout_count"`
	LastUpdated     string        `json:"last_updated"`
	Status          string        `json:"status"`
	Files           metadataFiles `json:"files"`
}

// EventSummary reports an archived event's scraping progress.
type EventSummary struct {
	EventID      string `json:"event_id"`
	TotalMatches int    `json:"total_matches"`
	Completed    int    `json:"completed"`
	Pending      int    `json:"pending"`
	CreatedAt    string `json:"created_at"`
	LastUpdated  string `json:"last_updated"`
	Status       string `json:"status"`
}

// Archive manages per-event snapshot directories under a base directory.
type Archive struct {
	baseDir string
	logger  *slog.Logger
	now     func() time.Time
}

// New creates the base directory if needed and returns an Archive.
func New(baseDir string, logger *slog.Logger) (*Archive, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &Archive{
		baseDir: baseDir,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (a *Archive) eventDir(eventID string) string {
	return filepath.Join(a.baseDir, eventID)
}

// EventExists reports whether the event has been archived before.
func (a *Archive) EventExists(eventID string) bool {
	_, err := os.Stat(filepath.Join(a.eventDir(eventID), metadataFileName))
	return err == nil
}

// ExistingMatches returns the match set from the latest snapshot, or an
// empty slice when the event has no snapshot yet.
func (a *Archive) ExistingMatches(eventID string) []models.MatchReference {
	rawDir := filepath.Join(a.eventDir(eventID), rawDirName)
	latest := latestFile(rawDir, "matches_", ".json")
	if latest == "" {
		return nil
	}

	raw, err := os.ReadFile(filepath.Join(rawDir, latest))
	if err != nil {
		a.logger.Error("reading existing matches failed", "event", eventID, "error", err)
		return nil
	}
	var doc matchesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		a.logger.Error("decoding existing matches failed", "event", eventID, "error", err)
		return nil
	}
	return doc.Matches
}

// SaveMatches archives the matches for an event and returns the event
// directory. Incoming matches already present in the latest snapshot are
// dropped; if nothing new remains the call writes no files.
//
// The five artifacts are written in sequence without rollback, so a
// mid-sequence failure can leave a partial snapshot behind.
func (a *Archive) SaveMatches(eventID string, matches []models.MatchReference, rawAPIResponse []byte) (string, error) {
	eventDir := a.eventDir(eventID)

	existing := a.ExistingMatches(eventID)
	existingURLs := make(map[string]bool, len(existing))
	for _, m := range existing {
		existingURLs[m.URL] = true
	}

	var added []models.MatchReference
	for _, m := range matches {
		if !existingURLs[m.URL] {
			added = append(added, m)
		}
	}

	if len(existing) > 0 && len(added) == 0 {
		a.logger.Info("event already has all matches archived, skipping",
			"event", eventID, "matches", len(existing))
		return eventDir, nil
	}

	all := matches
	newCount := len(all)
	if len(existing) > 0 {
		a.logger.Info("merging with existing archive",
			"event", eventID, "existing", len(existing), "new", len(added))
		all = append(append([]models.MatchReference{}, existing...), added...)
		newCount = len(added)
	}

	rawDir := filepath.Join(eventDir, rawDirName)
	csvDir := filepath.Join(eventDir, csvDirName)
	for _, dir := range []string{eventDir, rawDir, csvDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating event directory: %w", err)
		}
	}

	timestamp := a.now().Format("20060102_150405")

	var rawFileName string
	if len(rawAPIResponse) > 0 {
		rawFileName = fmt.Sprintf("api_response_%s.json", timestamp)
		if err := os.WriteFile(filepath.Join(rawDir, rawFileName), rawAPIResponse, 0o644); err != nil {
			return "", fmt.Errorf("writing raw api response: %w", err)
		}
	}

	jsonFileName := fmt.Sprintf("matches_%s.json", timestamp)
	doc := matchesDocument{
		EventID:    eventID,
		Timestamp:  timestamp,
		MatchCount: len(all),
		NewMatches: newCount,
		Matches:    all,
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding matches snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(rawDir, jsonFileName), encoded, 0o644); err != nil {
		return "", fmt.Errorf("writing matches snapshot: %w", err)
	}

	csvFileName := fmt.Sprintf("matches_%s.csv", timestamp)
	if err := a.writeCSV(filepath.Join(csvDir, csvFileName), all); err != nil {
		return "", err
	}

	if err := a.writeListing(filepath.Join(eventDir, listingFileName), eventID, all); err != nil {
		return "", err
	}

	if err := a.writeMetadata(eventDir, eventID, timestamp, all, metadataFiles{
		RawAPIResponse: rawFileName,
		MatchesJSON:    jsonFileName,
		MatchesCSV:     csvFileName,
		MatchURLs:      listingFileName,
	}); err != nil {
		return "", err
	}

	a.logger.Info("archived event matches",
		"event", eventID, "total", len(all), "new", newCount, "dir", eventDir)
	return eventDir, nil
}

func (a *Archive) writeCSV(path string, matches []models.MatchReference) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, m := range matches {
		number := m.MatchNumber
		if number == 0 {
			number = i + 1
		}
		row := []string{
			strconv.Itoa(number),
			string(m.MatchType),
			string(m.Phase),
			m.GroupName,
			m.URL,
			m.Title,
			string(models.StatusPending),
			"",
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv export: %w", err)
	}
	return nil
}

func (a *Archive) writeMetadata(eventDir, eventID, timestamp string, matches []models.MatchReference, files metadataFiles) error {
	roundRobin := 0
	for _, m := range matches {
		if m.MatchType == models.MatchTypeRoundRobin {
			roundRobin++
		}
	}

	meta := metadataDocument{
		EventID:         eventID,
		CreatedAt:       timestamp,
		MatchCount:      len(matches),
		RoundRobinCount: roundRobin,
		KnockoutCount:   len(matches) - roundRobin,
		LastUpdated:     timestamp,
		Status:          "matches_found",
		Files:           files,
	}

	// A re-save keeps the original creation timestamp.
	if prev, err := a.readMetadata(eventID); err == nil && prev.CreatedAt != "" {
		meta.CreatedAt = prev.CreatedAt
	}

	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(eventDir, metadataFileName), encoded, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

func (a *Archive) readMetadata(eventID string) (metadataDocument, error) {
	var meta metadataDocument
	raw, err := os.ReadFile(filepath.Join(a.eventDir(eventID), metadataFileName))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("decoding metadata: %w", err)
	}
	return meta, nil
}

// LoadPendingMatches returns the matches whose status is still pending
// in the latest CSV export.
func (a *Archive) LoadPendingMatches(eventID string) ([]models.MatchReference, error) {
	rows, _, _, err := a.readLatestCSV(eventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var pending []models.MatchReference
	for _, row := range rows {
		if row["status"] != string(models.StatusPending) {
			continue
		}
		number, _ := strconv.Atoi(row["match_number"])
		pending = append(pending, models.MatchReference{
			URL:         row["url"],
			Title:       row["title"],
			MatchNumber: number,
			MatchType:   models.MatchType(row["match_type"]),
			Phase:       models.Phase(row["phase"]),
			GroupName:   row["group_name"],
		})
	}
	return pending, nil
}

// UpdateMatchStatus rewrites the latest CSV export, setting the status
// and scrape timestamp of the row matching matchURL. When stats are
// given they are additionally written as a per-match snapshot keyed by
// the URL's last path segment.
func (a *Archive) UpdateMatchStatus(eventID, matchURL string, status models.MatchStatus, stats []models.PlayerMatchStats) error {
	rows, header, path, err := a.readLatestCSV(eventID)
	if err != nil {
		return err
	}

	updated := false
	for _, row := range rows {
		if row["url"] == matchURL {
			row["status"] = string(status)
			row["scraped_at"] = a.now().Format("2006-01-02 15:04:05")
			updated = true
		}
	}
	if !updated {
		a.logger.Warn("match url not found in archive", "event", eventID, "url", matchURL)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rewriting csv export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv export: %w", err)
	}

	if len(stats) == 0 {
		return nil
	}

	statsDir := filepath.Join(a.eventDir(eventID), statsDirName)
	if err := os.MkdirAll(statsDir, 0o755); err != nil {
		return fmt.Errorf("creating stats directory: %w", err)
	}
	segments := strings.Split(strings.TrimRight(matchURL, "/"), "/")
	matchID := segments[len(segments)-1]
	encoded, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding match stats: %w", err)
	}
	statsPath := filepath.Join(statsDir, matchID+".json")
	if err := os.WriteFile(statsPath, encoded, 0o644); err != nil {
		return fmt.Errorf("writing match stats: %w", err)
	}
	return nil
}

// EventSummary reports total, completed and pending match counts for an
// archived event.
func (a *Archive) EventSummary(eventID string) (EventSummary, error) {
	meta, err := a.readMetadata(eventID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return EventSummary{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return EventSummary{}, err
	}

	summary := EventSummary{
		EventID:      eventID,
		TotalMatches: meta.MatchCount,
		CreatedAt:    meta.CreatedAt,
		LastUpdated:  meta.LastUpdated,
		Status:       meta.Status,
	}

	rows, _, _, err := a.readLatestCSV(eventID)
	if err != nil && !errors.Is(err, ErrEventNotFound) {
		return EventSummary{}, err
	}
	for _, row := range rows {
		switch models.MatchStatus(row["status"]) {
		case models.StatusCompleted:
			summary.Completed++
		case models.StatusPending:
			summary.Pending++
		}
	}
	return summary, nil
}

// ListEvents returns summaries for every archived event, most recently
// created first.
func (a *Archive) ListEvents() ([]EventSummary, error) {
	entries, err := os.ReadDir(a.baseDir)
	if err != nil {
		return nil, fmt.Errorf("listing archive directory: %w", err)
	}

	var events []EventSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summary, err := a.EventSummary(entry.Name())
		if err != nil {
			continue
		}
		events = append(events, summary)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt > events[j].CreatedAt
	})
	return events, nil
}

// readLatestCSV loads the newest CSV export as keyed rows plus the
// header order and the file path, for in-place rewrites.
func (a *Archive) readLatestCSV(eventID string) ([]map[string]string, []string, string, error) {
	csvDir := filepath.Join(a.eventDir(eventID), csvDirName)
	latest := latestFile(csvDir, "matches_", ".csv")
	if latest == "" {
		return nil, nil, "", fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	path := filepath.Join(csvDir, latest)

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("opening csv export: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, "", fmt.Errorf("reading csv export: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, path, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, header, path, nil
}

// latestFile returns the lexicographically last file in dir matching the
// prefix and suffix, or "" when none exists. Timestamped names sort
// chronologically.
func latestFile(dir, prefix, suffix string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[len(names)-1]
}
