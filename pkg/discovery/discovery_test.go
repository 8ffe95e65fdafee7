package discovery

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

type fakeFetcher struct {
	content string
	err     error
	gotURL  string
}

func (f *fakeFetcher) Fetch(_ context.Context, url, _ string) (string, error) {
	f.gotURL = url
	return f.content, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nullWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestEventIDFromURL(t *testing.T) {
	table := []struct {
		url      string
		expected string
	}{
		{url: "https://tv.dartconnect.com/eventmenu/mt_joe6163l_1", expected: "mt_joe6163l_1"},
		{url: "https://tv.dartconnect.com/event/mt_joe6163l_1", expected: "mt_joe6163l_1"},
		{url: "https://tv.dartconnect.com/event/mt_joe6163l_1/matches", expected: "mt_joe6163l_1"},
		{url: "https://tv.dartconnect.com/event/abc?tab=matches", expected: "abc"},
		{url: "https://tv.dartconnect.com/somewhere/else", expected: "unknown"},
	}
	for _, row := range table {
		require.Equal(t, row.expected, EventIDFromURL(row.url), row.url)
	}
}

func TestDiscoverViaEmbeddedAppAPI(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/event/mt_test_1/matches", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"payload": {
				"completed": [
					{"mi": "901", "hc": "Alice", "ac": "Bob"},
					{"mi": "902", "hc": "Carol", "ac": "Dave"},
					{"no_id": true},
					{"mi": "903"}
				]
			}
		}`))
	}))
	defer api.Close()

	fetcher := &fakeFetcher{content: `<html><div id="app" data-page="{&quot;component&quot;:&quot;Event/Matches&quot;}"></div></html>`}
	engine := NewEngine(fetcher, discardLogger(), api.URL, "https://recap.example.com")

	result, err := engine.Discover(context.Background(), "https://tv.dartconnect.com/eventmenu/mt_test_1")
	require.NoError(t, err)
	require.Equal(t, "mt_test_1", result.EventID)
	require.NotNil(t, result.RawAPIResponse)
	require.Len(t, result.Matches, 3)

	first := result.Matches[0]
	require.Equal(t, "https://recap.example.com/matches/901", first.URL)
	require.Equal(t, 1, first.MatchNumber)
	require.Equal(t, models.PhaseFinal, first.Phase)
	require.Equal(t, models.MatchTypeKnockout, first.MatchType)
	require.Equal(t, "mt_test_1 Match 1 - Alice vs Bob (Final)", first.Title)

	second := result.Matches[1]
	require.Equal(t, models.PhaseSemifinal, second.Phase)

	// Record without any id is skipped but does not break numbering.
	third := result.Matches[2]
	require.Equal(t, 3, third.MatchNumber)
	require.Equal(t, "mt_test_1 Match 3 (Semifinal)", third.Title)

	require.NotEmpty(t, result.ProgressLog)
}

func TestDiscoverNoDuplicateURLs(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payload":{"completed":[{"mi":"1"},{"mi":"1"},{"mi":"2"}]}}`))
	}))
	defer api.Close()

	fetcher := &fakeFetcher{content: `<div id="app" data-page="{}"></div>`}
	engine := NewEngine(fetcher, discardLogger(), api.URL, "https://recap.example.com")

	result, err := engine.Discover(context.Background(), "https://tv.dartconnect.com/event/ev")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, m := range result.Matches {
		require.False(t, seen[m.URL], "duplicate url %s", m.URL)
		seen[m.URL] = true
	}
	require.Len(t, result.Matches, 2)
}

func TestDiscoverAnchorFallback(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body>
		<a href="https://recap.example.com/matches/11">Match One</a>
		<a href="/matches/12">Match Two</a>
		<a href="/matches/12">Match Two Again</a>
		<a href="/about">Not a match</a>
	</body></html>`}
	engine := NewEngine(fetcher, discardLogger(), "https://tv.example.com", "https://recap.example.com")

	result, err := engine.Discover(context.Background(), "https://tv.example.com/event/ev2")
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
	require.Equal(t, "https://recap.example.com/matches/11", result.Matches[0].URL)
	require.Equal(t, "Match One", result.Matches[0].Title)
	require.Equal(t, "https://recap.example.com/matches/12", result.Matches[1].URL)
}

func TestDiscoverDataAttrFallback(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body>
		<div data-match-id="77">Quarterfinal 1</div>
		<div data-match-id="78"></div>
	</body></html>`}
	engine := NewEngine(fetcher, discardLogger(), "https://tv.example.com", "https://recap.example.com")

	result, err := engine.Discover(context.Background(), "https://tv.example.com/event/ev3")
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
	require.Equal(t, "https://recap.example.com/matches/77", result.Matches[0].URL)
	require.Equal(t, "Match 2", result.Matches[1].Title)
}

func TestDiscoverFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	engine := NewEngine(fetcher, discardLogger(), "https://tv.example.com", "https://recap.example.com")

	result, err := engine.Discover(context.Background(), "https://tv.example.com/event/ev4")
	require.Nil(t, result)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	require.Contains(t, failure.Reason, "connection refused")
	require.NotEmpty(t, failure.ProgressLog)
}
