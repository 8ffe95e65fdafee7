package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	content string
	body    []byte
	err     error

	fetchCalls int
	byteCalls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, _, _ string) (string, error) {
	f.fetchCalls++
	return f.content, f.err
}

func (f *fakeFetcher) FetchBytes(_ context.Context, _ string) ([]byte, error) {
	f.byteCalls++
	return f.body, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nullWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestMatchIDFromURL(t *testing.T) {
	table := []struct {
		url      string
		expected string
	}{
		{url: "https://dartconnect.com/dart/Recap.aspx?ID=12345", expected: "DC_12345"},
		{url: "https://recap.dartconnect.com/matches/90210", expected: "DC_90210"},
		{url: "https://recap.dartconnect.com/matches/abc_77", expected: "DC_abc_77"},
	}
	for _, row := range table {
		require.Equal(t, row.expected, MatchIDFromURL(row.url), row.url)
	}

	// URLs with no usable segment still yield a stable synthetic id.
	id := MatchIDFromURL("https://recap.dartconnect.com/matches/")
	require.Contains(t, id, "Match_")
	require.Equal(t, id, MatchIDFromURL("https://recap.dartconnect.com/matches/"))
}

func TestParseAverage(t *testing.T) {
	require.Equal(t, 85.5, parseAverage("85.5"))
	require.Equal(t, 0.0, parseAverage("-"))
	require.Equal(t, 0.0, parseAverage(""))
	require.Equal(t, 0.0, parseAverage("n/a"))
	require.Equal(t, 1234.5, parseAverage("1,234.5"))
}

const embeddedPayload = `{
	"props": {
		"matchInfo": {
			"opponents": [
				{"name": "A. Smith", "ppr": "85.5", "leg_wins": 3, "set_wins": 1, "score": 3},
				{"name": "Bob", "ppr": "-", "leg_wins": 1, "set_wins": 0, "score": 1}
			],
			"total_games": 4,
			"total_sets": 1
		},
		"homePlayers": [{"name": "Alice Smith"}],
		"awayPlayers": [],
		"segments": {
			"": [
				[
					{
						"home": {"ppr": "105", "win": true, "double_out_points": 120, "ending_points": 0},
						"away": {"ppr": "45", "win": false, "ending_points": 220}
					},
					{
						"home": {"ppr": "72", "win": true, "double_out_points": 40, "ending_points": 0},
						"away": {"ppr": "55", "win": false, "ending_points": 160}
					}
				]
			]
		}
	}
}`

func embeddedPage(payload string) string {
	return fmt.Sprintf(`<html><body><div id="app" data-page='%s'></div></body></html>`, payload)
}

func TestExtractEmbeddedJSON(t *testing.T) {
	fetcher := &fakeFetcher{content: embeddedPage(embeddedPayload)}
	engine := NewEngine(fetcher, discardLogger())

	stats, err := engine.Extract(context.Background(), "https://recap.dartconnect.com/matches/555")
	require.NoError(t, err)
	require.Len(t, stats, 2)

	home := stats[0]
	require.Equal(t, "Alice Smith", home.PlayerName, "full roster name preferred over short name")
	require.Equal(t, "DC_555", home.MatchID)
	require.Equal(t, 85.5, home.ThreeDartAverage)
	require.Equal(t, 4, home.LegsPlayed)
	require.Equal(t, 3, home.LegsWon)
	require.Equal(t, 1, home.LegsLost)
	require.Equal(t, 1, home.SetsPlayed)
	require.Equal(t, 1, home.SetsWon)
	require.Equal(t, 1, home.Count180s, "leg ppr 105 buckets as a maximum")
	require.Equal(t, 1, home.Count160Plus)
	require.Equal(t, 2, home.Count140Plus, "leg pprs 105 and 72 both clear the 140+ threshold")
	require.Equal(t, 2, home.Count100Plus)
	require.Equal(t, 120, home.HighestFinish)
	require.Equal(t, 2, home.DoublesHit)
	require.Equal(t, 2, home.DoubleAttempts)
	require.Equal(t, 1, home.MatchWon)
	require.Equal(t, "3-1", home.MatchScore)

	away := stats[1]
	require.Equal(t, "Bob", away.PlayerName, "falls back to opponent short name")
	require.Equal(t, 0.0, away.ThreeDartAverage, "dash average parses to zero without raising")
	require.Equal(t, 0, away.Count100Plus)
	require.Equal(t, 0, away.HighestFinish)
	require.Equal(t, 1, away.DoubleAttempts, "leg ending at 160 is inside checkout range")
	require.Equal(t, 0, away.MatchWon)
}

func TestExtractEmbeddedJSONNumericWinFlags(t *testing.T) {
	// Older recaps mark won legs with 0/1 instead of booleans. The tier
	// must still decode the payload and credit checkouts.
	payload := `{
		"props": {
			"matchInfo": {
				"opponents": [
					{"name": "Alice", "ppr": 85.5, "leg_wins": 1, "set_wins": 1, "score": 1},
					{"name": "Bob", "ppr": 60.0, "leg_wins": 0, "set_wins": 0, "score": 0}
				],
				"total_games": 1,
				"total_sets": 1
			},
			"homePlayers": [],
			"awayPlayers": [],
			"segments": {
				"": [
					[
						{
							"home": {"ppr": 90, "win": 1, "double_out_points": 120, "ending_points": 0},
							"away": {"ppr": 45, "win": 0, "ending_points": 220}
						}
					]
				]
			}
		}
	}`
	fetcher := &fakeFetcher{content: embeddedPage(payload)}
	engine := NewEngine(fetcher, discardLogger())

	stats, err := engine.Extract(context.Background(), "https://recap.dartconnect.com/matches/556")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, 120, stats[0].HighestFinish)
	require.Equal(t, 1, stats[0].DoublesHit)
	require.Equal(t, 0, stats[1].DoublesHit)
}

func TestAsBool(t *testing.T) {
	require.True(t, asBool(true))
	require.True(t, asBool(float64(1)))
	require.True(t, asBool("true"))
	require.True(t, asBool("1"))
	require.False(t, asBool(false))
	require.False(t, asBool(float64(0)))
	require.False(t, asBool("0"))
	require.False(t, asBool("false"))
	require.False(t, asBool(""))
	require.False(t, asBool(nil))
}

func TestExtractTableFallback(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body>
		<table>
			<tr><th>Player</th><th>3-Dart Avg</th><th>180s</th></tr>
			<tr><td>Bob</td><td>75.2</td><td>3</td></tr>
		</table>
	</body></html>`}
	engine := NewEngine(fetcher, discardLogger())

	stats, err := engine.Extract(context.Background(), "https://example.com/recap/1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "Bob", stats[0].PlayerName)
	require.Equal(t, 75.2, stats[0].ThreeDartAverage)
	require.Equal(t, 3, stats[0].Count180s)
	require.Equal(t, 1, stats[0].LegsPlayed, "legs default to 1 when the table has no legs column")
}

func TestExtractTableRejectsRowsWithoutAverage(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body>
		<table>
			<tr><th>Player</th><th>Average</th><th>Legs</th><th>High Finish</th></tr>
			<tr><td>Carol</td><td>68.4</td><td>5</td><td>121</td></tr>
			<tr><td>Dan</td><td>-</td><td>5</td><td>0</td></tr>
			<tr><td>x</td><td>50.0</td><td>1</td><td>0</td></tr>
		</table>
	</body></html>`}
	engine := NewEngine(fetcher, discardLogger())

	stats, err := engine.Extract(context.Background(), "https://example.com/recap/2")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "Carol", stats[0].PlayerName)
	require.Equal(t, 5, stats[0].LegsPlayed)
	require.Equal(t, 121, stats[0].HighestFinish)
}

func TestExtractFreeTextFallback(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body>
		<p>Final recap. Dave Jones: 67.89 avg over the night.</p>
		<p>Sam Hill 71.20 average</p>
	</body></html>`}
	engine := NewEngine(fetcher, discardLogger())

	stats, err := engine.Extract(context.Background(), "https://example.com/recap/3")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, "Dave Jones", stats[0].PlayerName)
	require.Equal(t, 67.89, stats[0].ThreeDartAverage)
	require.Equal(t, "Sam Hill", stats[1].PlayerName)
}

func TestExtractEmptyIsNotAnError(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body><p>Nothing to see here.</p></body></html>`}
	engine := NewEngine(fetcher, discardLogger())

	stats, err := engine.Extract(context.Background(), "https://example.com/recap/4")
	require.NoError(t, err)
	require.Empty(t, stats)
}

func TestExtractPDFRouting(t *testing.T) {
	// A .pdf URL goes through the binary path, never the page fetch.
	fetcher := &fakeFetcher{body: []byte("not a real pdf")}
	engine := NewEngine(fetcher, discardLogger())

	stats, err := engine.Extract(context.Background(), "https://example.com/scoresheets/week3.pdf")
	require.NoError(t, err, "an unreadable scoresheet is a valid empty result")
	require.Empty(t, stats)
	require.Equal(t, 1, fetcher.byteCalls)
	require.Equal(t, 0, fetcher.fetchCalls)
}

func TestExtractPDFDownloadFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	engine := NewEngine(fetcher, discardLogger())

	_, err := engine.Extract(context.Background(), "https://example.com/scoresheets/week3.pdf")
	require.Error(t, err)
}

func TestExtractNonPDFNeverFetchesBytes(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body><p>Nothing.</p></body></html>`}
	engine := NewEngine(fetcher, discardLogger())

	_, err := engine.Extract(context.Background(), "https://example.com/recap/8")
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.fetchCalls)
	require.Equal(t, 0, fetcher.byteCalls)
}

func TestExtractFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	engine := NewEngine(fetcher, discardLogger())

	_, err := engine.Extract(context.Background(), "https://example.com/recap/5")
	require.Error(t, err)
}

func TestExtractResult(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body>
		<span class="player-name">Alice</span>
		<span class="player-name">Bob</span>
		<span class="score">4</span>
		<span class="score">2</span>
	</body></html>`}
	engine := NewEngine(fetcher, discardLogger())

	result, err := engine.ExtractResult(context.Background(), "https://example.com/recap/6", 0)
	require.NoError(t, err)
	require.Equal(t, "Alice", result.Player1)
	require.Equal(t, "Bob", result.Player2)
	require.Equal(t, "4-2", result.Score)
	require.Equal(t, "Alice", result.Winner)
	require.Equal(t, "final", string(result.Phase))
}

func TestSetsCount(t *testing.T) {
	fetcher := &fakeFetcher{content: `<html><body>
		<h3>Set 1</h3><p>legs...</p>
		<h3>Set 2</h3><p>legs...</p>
		<a href="#">Back to Set 2</a>
	</body></html>`}
	engine := NewEngine(fetcher, discardLogger())

	count, err := engine.SetsCount(context.Background(), "https://example.com/recap/7")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
