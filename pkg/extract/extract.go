// Package extract pulls per-player statistics out of a match recap page.
//
// Recaps come in several internal representations, probed strongest
// first: an embedded JSON blob with leg-by-leg detail, generic HTML
// statistics tables, free-text patterns in the rendered page, and for
// operator-uploaded scoresheets a PDF text scan. The first tier to
// produce players wins; an empty result is a valid "nothing extractable"
// outcome, distinct from a fetch failure.
package extract

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

// Heuristic thresholds for deriving turn-score buckets from a leg's
// points-per-round summary. The source feed has no per-dart ledger, so a
// leg whose PPR clears a threshold is counted once toward the matching
// bucket. These are tunable approximations, not exact counts.
const (
	PPRFor100Plus = 60.0
	PPRFor140Plus = 70.0
	PPRFor160Plus = 80.0
	PPRFor180     = 100.0

	// MaxReachableFinish is the highest score finishable in one turn.
	// A leg ending at or below it counts as a double attempt whether or
	// not a finish happened.
	MaxReachableFinish = 170
)

// PageFetcher is the slice of the fetcher the engine needs.
type PageFetcher interface {
	Fetch(ctx context.Context, url, waitHint string) (string, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Page is a fetched recap handed to each tier.
type Page struct {
	URL     string
	MatchID string
	Doc     *goquery.Document
}

// Tier is one extraction strategy. A tier returns nil/empty when it finds
// nothing; internal anomalies are swallowed with defaults substituted so
// the cascade can continue.
type Tier interface {
	Name() string
	Extract(page *Page) []models.PlayerMatchStats
}

// Engine runs the tier cascade for recap URLs.
type Engine struct {
	fetcher PageFetcher
	logger  *slog.Logger
	tiers   []Tier
}

// NewEngine wires the default tier order.
func NewEngine(fetcher PageFetcher, logger *slog.Logger) *Engine {
	return &Engine{
		fetcher: fetcher,
		logger:  logger,
		tiers: []Tier{
			&embeddedJSONTier{logger: logger},
			&tableTier{logger: logger},
			&freeTextTier{logger: logger},
		},
	}
}

// Extract fetches the recap at recapURL and returns the statistics for
// the players found there. An empty slice with a nil error means the page
// was readable but carried no extractable statistics.
func (e *Engine) Extract(ctx context.Context, recapURL string) ([]models.PlayerMatchStats, error) {
	if isPDF(recapURL) {
		return e.extractFromPDF(ctx, recapURL)
	}

	html, err := e.fetcher.Fetch(ctx, recapURL, "#app")
	if err != nil {
		return nil, fmt.Errorf("fetching recap page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing recap page: %w", err)
	}

	page := &Page{
		URL:     recapURL,
		MatchID: MatchIDFromURL(recapURL),
		Doc:     doc,
	}

	for _, tier := range e.tiers {
		stats := tier.Extract(page)
		if len(stats) > 0 {
			e.logger.Info("extracted player stats",
				"url", recapURL, "tier", tier.Name(), "players", len(stats))
			return stats, nil
		}
		e.logger.Debug("tier produced nothing", "url", recapURL, "tier", tier.Name())
	}

	e.logger.Warn("no player stats found in recap", "url", recapURL)
	return nil, nil
}

var recapIDPattern = regexp.MustCompile(`(?i)ID=(\d+)`)

// MatchIDFromURL derives a stable match identifier from a recap URL.
func MatchIDFromURL(rawURL string) string {
	if m := recapIDPattern.FindStringSubmatch(rawURL); m != nil {
		return "DC_" + m[1]
	}
	parsed, err := url.Parse(rawURL)
	if err == nil {
		segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		last := segments[len(segments)-1]
		if last != "" && last != "matches" {
			return "DC_" + last
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(rawURL))
	return fmt.Sprintf("Match_%05d", h.Sum32()%100000)
}

func isPDF(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), ".pdf")
}

// parseAverage reads a three-dart-average field defensively: dashes and
// empty strings mean "not recorded" and parse as zero, as does any other
// non-numeric text.
func parseAverage(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return 0.0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0.0
	}
	return value
}

// asFloat coerces a loosely-typed JSON value to a float. Strings go
// through parseAverage so "-" placeholders collapse to zero.
func asFloat(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		return parseAverage(value)
	case int:
		return float64(value)
	}
	return 0.0
}

// asInt coerces a loosely-typed JSON value to an int.
func asInt(v any) int {
	return int(asFloat(v))
}

// asBool coerces a loosely-typed JSON flag. Some recaps carry booleans,
// older ones carry 0/1 or "true"/"false" strings.
func asBool(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case float64:
		return value != 0
	case string:
		value = strings.TrimSpace(strings.ToLower(value))
		return value != "" && value != "0" && value != "false"
	}
	return false
}

// digitsOnly strips everything but digits, for table cells like "3 x" or
// "170!".
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// numericPart strips everything but digits and the decimal point.
func numericPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
