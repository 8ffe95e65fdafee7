package archive

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := New(t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	return a
}

func sampleMatches() []models.MatchReference {
	return []models.MatchReference{
		{
			URL:         "https://tv.dartconnect.com/matches/101",
			Title:       "ev_1 Match 1 - Alice vs Bob (Final)",
			MatchNumber: 1,
			MatchType:   models.MatchTypeKnockout,
			Phase:       models.PhaseFinal,
		},
		{
			URL:         "https://tv.dartconnect.com/matches/102",
			Title:       "ev_1 Match 10 - Carol vs Dave (Round Robin)",
			MatchNumber: 10,
			MatchType:   models.MatchTypeRoundRobin,
			Phase:       models.PhaseRoundRobin,
			GroupName:   "A",
		},
	}
}

func TestSaveMatchesWritesAllArtifacts(t *testing.T) {
	a := newTestArchive(t)

	dir, err := a.SaveMatches("ev_1", sampleMatches(), []byte(`{"payload":{}}`))
	require.NoError(t, err)
	require.True(t, a.EventExists("ev_1"))

	require.FileExists(t, filepath.Join(dir, "metadata.json"))
	require.FileExists(t, filepath.Join(dir, "match_urls.txt"))

	rawFiles, err := os.ReadDir(filepath.Join(dir, "raw_data"))
	require.NoError(t, err)
	require.Len(t, rawFiles, 2) // api response + matches snapshot

	csvFiles, err := os.ReadDir(filepath.Join(dir, "csv"))
	require.NoError(t, err)
	require.Len(t, csvFiles, 1)

	listing, err := os.ReadFile(filepath.Join(dir, "match_urls.txt"))
	require.NoError(t, err)
	require.Contains(t, string(listing), "Total Matches: 2")
	require.Contains(t, string(listing), "Round Robin: 1")
	require.Contains(t, string(listing), "Alice vs Bob")
}

func TestSaveMatchesIdempotent(t *testing.T) {
	a := newTestArchive(t)
	// Distinct timestamps so a second write, if any, would be visible
	// as a new file.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}

	first, err := a.SaveMatches("ev_1", sampleMatches(), nil)
	require.NoError(t, err)
	second, err := a.SaveMatches("ev_1", sampleMatches(), nil)
	require.NoError(t, err)
	require.Equal(t, first, second)

	rawFiles, err := os.ReadDir(filepath.Join(first, "raw_data"))
	require.NoError(t, err)
	require.Len(t, rawFiles, 1)
}

func TestSaveMatchesMergesNewMatches(t *testing.T) {
	a := newTestArchive(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}

	_, err := a.SaveMatches("ev_1", sampleMatches(), nil)
	require.NoError(t, err)

	extra := append(sampleMatches(), models.MatchReference{
		URL:         "https://tv.dartconnect.com/matches/103",
		Title:       "ev_1 Match 2 - Eve vs Frank (Semifinal)",
		MatchNumber: 2,
		MatchType:   models.MatchTypeKnockout,
		Phase:       models.PhaseSemifinal,
	})
	_, err = a.SaveMatches("ev_1", extra, nil)
	require.NoError(t, err)

	merged := a.ExistingMatches("ev_1")
	require.Len(t, merged, 3)

	summary, err := a.EventSummary("ev_1")
	require.NoError(t, err)
	require.Equal(t, 3, summary.TotalMatches)
	require.Equal(t, 3, summary.Pending)
}

func TestUpdateMatchStatus(t *testing.T) {
	a := newTestArchive(t)

	_, err := a.SaveMatches("ev_1", sampleMatches(), nil)
	require.NoError(t, err)

	stats := []models.PlayerMatchStats{{PlayerName: "Alice", ThreeDartAverage: 82.1, LegsPlayed: 5}}
	err = a.UpdateMatchStatus("ev_1", "https://tv.dartconnect.com/matches/101",
		models.StatusCompleted, stats)
	require.NoError(t, err)

	summary, err := a.EventSummary("ev_1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Completed)
	require.Equal(t, 1, summary.Pending)

	// Stats snapshot keyed by the URL's last segment.
	require.FileExists(t, filepath.Join(a.eventDir("ev_1"), "stats", "101.json"))

	pending, err := a.LoadPendingMatches("ev_1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "https://tv.dartconnect.com/matches/102", pending[0].URL)
	require.Equal(t, models.PhaseRoundRobin, pending[0].Phase)
	require.Equal(t, "A", pending[0].GroupName)
}

func TestLoadPendingMatchesUnknownEvent(t *testing.T) {
	a := newTestArchive(t)
	pending, err := a.LoadPendingMatches("nope")
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestEventSummaryUnknownEvent(t *testing.T) {
	a := newTestArchive(t)
	_, err := a.EventSummary("nope")
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestListEvents(t *testing.T) {
	a := newTestArchive(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		base = base.Add(time.Minute)
		return base
	}

	_, err := a.SaveMatches("ev_1", sampleMatches(), nil)
	require.NoError(t, err)
	_, err = a.SaveMatches("ev_2", sampleMatches(), nil)
	require.NoError(t, err)

	events, err := a.ListEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "ev_2", events[0].EventID) // newest first
	require.Equal(t, "ev_1", events[1].EventID)
}
