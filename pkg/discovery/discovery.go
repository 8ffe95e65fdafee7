// Package discovery resolves the list of matches for a tournament event.
//
// The site renders its match list with client-side script, so no single
// signal is reliable. Discovery runs an ordered list of strategies,
// strongest first, and stops at the first one that yields matches:
//
//  1. embedded-app JSON root detected on the page, followed by a call to
//     the site's internal matches API
//  2. anchor scan over the rendered HTML for recap-shaped links
//  3. scan for elements carrying a match-id data attribute
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myusername/dartconnect-event-scraper/pkg/classify"
	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

// PageFetcher is the slice of the fetcher the engine needs.
type PageFetcher interface {
	Fetch(ctx context.Context, url, waitHint string) (string, error)
}

// Result is a successful discovery outcome.
type Result struct {
	EventID        string                  `json:"event_id"`
	Matches        []models.MatchReference `json:"matches"`
	RawAPIResponse json.RawMessage         `json:"raw_response,omitempty"`
	ProgressLog    []string                `json:"progress_log"`
}

// Failure reports an unrecoverable discovery error together with the
// step-by-step progress trail accumulated before the error, so callers
// can show the user how far the scrape got.
type Failure struct {
	Reason      string
	ProgressLog []string
}

func (f *Failure) Error() string { return f.Reason }

var eventIDPattern = regexp.MustCompile(`/(?:eventmenu|event)/([^/?]+)`)

// EventIDFromURL extracts the event identifier from an event page URL.
// A URL without a recognizable segment yields "unknown" rather than an
// error: downstream steps can still proceed with a synthetic identifier.
func EventIDFromURL(eventURL string) string {
	m := eventIDPattern.FindStringSubmatch(eventURL)
	if m == nil {
		return "unknown"
	}
	return m[1]
}

// Engine discovers matches for an event.
type Engine struct {
	fetcher    PageFetcher
	api        *APIClient
	logger     *slog.Logger
	siteBase   string
	recapBase  string
	strategies []strategy
}

// NewEngine wires a discovery engine. siteBase and recapBase are the
// event-site and recap-site roots, e.g. "https://tv.dartconnect.com" and
// "https://recap.dartconnect.com".
func NewEngine(fetcher PageFetcher, logger *slog.Logger, siteBase, recapBase string) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		api:       NewAPIClient(siteBase),
		logger:    logger,
		siteBase:  strings.TrimSuffix(siteBase, "/"),
		recapBase: strings.TrimSuffix(recapBase, "/"),
	}
	e.strategies = []strategy{
		&embeddedAppStrategy{engine: e},
		&anchorScanStrategy{engine: e},
		&dataAttrStrategy{engine: e},
	}
	return e
}

// Discover resolves the match list for the event page at eventURL. The
// call is all-or-nothing: partial results are never returned, and any
// unrecoverable error comes back as a *Failure carrying the progress
// trail.
func (e *Engine) Discover(ctx context.Context, eventURL string) (*Result, error) {
	var progress []string
	step := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		e.logger.Info(msg, "event_url", eventURL)
		progress = append(progress, msg)
	}

	step("[1/5] Starting event scrape: %s", eventURL)

	eventID := EventIDFromURL(eventURL)
	step("[2/5] Event ID: %s", eventID)

	matchesURL := fmt.Sprintf("%s/event/%s/matches", e.siteBase, eventID)
	step("[3/5] Loading matches page: %s", matchesURL)

	html, err := e.fetcher.Fetch(ctx, matchesURL, "")
	if err != nil {
		step("ERROR: could not fetch matches page: %v", err)
		return nil, &Failure{
			Reason:      fmt.Sprintf("fetching matches page: %v", err),
			ProgressLog: progress,
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		step("ERROR: could not parse matches page: %v", err)
		return nil, &Failure{
			Reason:      fmt.Sprintf("parsing matches page: %v", err),
			ProgressLog: progress,
		}
	}
	step("[4/5] Matches page parsed")

	st := &state{
		eventID: eventID,
		doc:     doc,
		step:    step,
		seen:    make(map[string]bool),
	}

	for _, strat := range e.strategies {
		found := strat.discover(ctx, st)
		if found > 0 {
			break
		}
	}

	step("[5/5] Discovery complete: %d matches found", len(st.matches))
	return &Result{
		EventID:        eventID,
		Matches:        st.matches,
		RawAPIResponse: st.rawAPI,
		ProgressLog:    progress,
	}, nil
}

// state carries per-call discovery context between strategies. seen keys
// are match URLs; every strategy dedupes against it.
type state struct {
	eventID string
	doc     *goquery.Document
	step    func(format string, args ...any)
	seen    map[string]bool
	matches []models.MatchReference
	rawAPI  json.RawMessage
}

func (s *state) add(ref models.MatchReference) bool {
	if s.seen[ref.URL] {
		return false
	}
	s.seen[ref.URL] = true
	s.matches = append(s.matches, ref)
	return true
}

// strategy is one tier of the discovery cascade. discover returns how
// many matches it added; a later strategy runs only if every earlier one
// added zero. Strategy errors are contained: they log, report through the
// progress trail, and count as zero matches.
type strategy interface {
	discover(ctx context.Context, st *state) int
}

// embeddedAppStrategy detects the embedded-app JSON root on the rendered
// page and, if present, asks the internal API for the completed-match
// collection.
type embeddedAppStrategy struct {
	engine *Engine
}

func (s *embeddedAppStrategy) discover(ctx context.Context, st *state) int {
	dataPage, exists := st.doc.Find("div#app").Attr("data-page")
	if !exists || dataPage == "" {
		st.step("No embedded app payload on page, skipping API strategy")
		return 0
	}
	st.step("Embedded app payload detected, calling matches API")

	raw, err := s.engine.api.EventMatches(ctx, st.eventID)
	if err != nil {
		st.step("Matches API call failed: %v", err)
		return 0
	}
	st.rawAPI = raw

	records := completedMatches(raw)
	if len(records) == 0 {
		st.step("No completed matches in API response")
		return 0
	}
	st.step("API returned %d completed matches", len(records))

	// Array order stands in for bracket order. That assumption is
	// unverified against the feed; see the classifier's notes.
	added := 0
	matchNumber := 1
	for _, record := range records {
		matchID := stringField(record, "mi", "i", "id", "match_id", "matchId")
		if matchID == "" {
			continue
		}
		home := stringField(record, "hc", "hcf")
		away := stringField(record, "ac", "acf")

		phase, group := classify.Classify(matchNumber)
		ref := models.MatchReference{
			URL:         fmt.Sprintf("%s/matches/%s", s.engine.recapBase, matchID),
			Title:       buildTitle(st.eventID, matchNumber, home, away),
			MatchNumber: matchNumber,
			MatchType:   classify.MatchType(matchNumber),
			Phase:       phase,
			GroupName:   group,
			HomePlayer:  home,
			AwayPlayer:  away,
		}
		if st.add(ref) {
			added++
		}
		matchNumber++
	}
	return added
}

// buildTitle combines event id, match number, player names and phase
// label into a display title like
// "mt_joe6163l_1 Match 1 - Alice vs Bob (Final)".
func buildTitle(eventID string, matchNumber int, home, away string) string {
	parts := []string{fmt.Sprintf("%s Match %d", eventID, matchNumber)}
	switch {
	case home != "" && away != "":
		parts = append(parts, fmt.Sprintf("- %s vs %s", home, away))
	case home != "":
		parts = append(parts, "- "+home)
	case away != "":
		parts = append(parts, "- "+away)
	}
	parts = append(parts, fmt.Sprintf("(%s)", classify.PhaseLabel(matchNumber)))
	return strings.Join(parts, " ")
}

// anchorScanStrategy falls back to scanning rendered anchors for links
// shaped like recap pages.
type anchorScanStrategy struct {
	engine *Engine
}

func (s *anchorScanStrategy) discover(_ context.Context, st *state) int {
	st.step("Falling back to HTML anchor scan")
	added := 0
	st.doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || !strings.Contains(href, "/matches/") {
			return
		}

		matchURL := href
		if strings.HasPrefix(href, "/") {
			matchURL = s.engine.recapBase + href
		} else if !strings.HasPrefix(href, "http") {
			matchURL = s.engine.recapBase + "/matches/" + href
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = fmt.Sprintf("Match %d", len(st.matches)+1)
		}
		n := len(st.matches) + 1
		phase, group := classify.Classify(n)
		if st.add(models.MatchReference{
			URL:         matchURL,
			Title:       title,
			MatchNumber: n,
			MatchType:   classify.MatchType(n),
			Phase:       phase,
			GroupName:   group,
		}) {
			added++
		}
	})
	if added > 0 {
		st.step("Anchor scan found %d matches", added)
	}
	return added
}

// dataAttrStrategy is the weakest signal: elements carrying a
// data-match-id attribute.
type dataAttrStrategy struct {
	engine *Engine
}

func (s *dataAttrStrategy) discover(_ context.Context, st *state) int {
	st.step("Falling back to data attribute scan")
	added := 0
	st.doc.Find("[data-match-id]").Each(func(_ int, sel *goquery.Selection) {
		matchID, _ := sel.Attr("data-match-id")
		if matchID == "" {
			return
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = fmt.Sprintf("Match %d", len(st.matches)+1)
		}
		n := len(st.matches) + 1
		phase, group := classify.Classify(n)
		if st.add(models.MatchReference{
			URL:         fmt.Sprintf("%s/matches/%s", s.engine.recapBase, matchID),
			Title:       title,
			MatchNumber: n,
			MatchType:   classify.MatchType(n),
			Phase:       phase,
			GroupName:   group,
		}) {
			added++
		}
	})
	if added > 0 {
		st.step("Data attribute scan found %d matches", added)
	}
	return added
}
