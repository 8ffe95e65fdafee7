package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myusername/dartconnect-event-scraper/pkg/classify"
	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

// nameSelectors and scoreSelectors are the CSS classes the site has used
// for the scoreboard header across layout revisions.
var nameSelectors = []string{".player-name", ".playerName", ".participant"}
var scoreSelectors = []string{".score", ".match-score", ".legs-won"}

// ExtractResult is a quick first pass over a recap: player names, score
// line and winner, without the detailed statistics. matchIndex is the
// 0-based position of the match within its event, used only for phase
// classification.
func (e *Engine) ExtractResult(ctx context.Context, recapURL string, matchIndex int) (*models.MatchResult, error) {
	html, err := e.fetcher.Fetch(ctx, recapURL, "")
	if err != nil {
		return nil, fmt.Errorf("fetching recap page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing recap page: %w", err)
	}

	names := selectTexts(doc, nameSelectors, 2)
	scores := selectInts(doc, scoreSelectors, 2)

	result := &models.MatchResult{
		Player1: "Unknown",
		Player2: "Unknown",
		Score:   "0-0",
		Winner:  "Unknown",
	}
	if len(names) > 0 {
		result.Player1 = names[0]
	}
	if len(names) > 1 {
		result.Player2 = names[1]
	}
	if len(scores) >= 2 {
		result.Score = fmt.Sprintf("%d-%d", scores[0], scores[1])
		if scores[0] > scores[1] {
			result.Winner = result.Player1
		} else if scores[1] > scores[0] {
			result.Winner = result.Player2
		}
	}

	result.Phase, result.Group = classify.Classify(matchIndex + 1)
	return result, nil
}

var setHeaderPattern = regexp.MustCompile(`(?i)Set\s+\d+`)

// SetsCount probes a knockout recap for the number of sets played, by
// counting distinct "Set N" headings in the rendered page.
func (e *Engine) SetsCount(ctx context.Context, recapURL string) (int, error) {
	html, err := e.fetcher.Fetch(ctx, recapURL, "")
	if err != nil {
		return 0, fmt.Errorf("fetching recap page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("parsing recap page: %w", err)
	}

	headings := setHeaderPattern.FindAllString(doc.Text(), -1)
	distinct := make(map[string]bool)
	for _, h := range headings {
		distinct[strings.ToLower(strings.Join(strings.Fields(h), " "))] = true
	}
	return len(distinct), nil
}

// selectTexts returns up to limit trimmed texts for the first selector
// that matches anything.
func selectTexts(doc *goquery.Document, selectors []string, limit int) []string {
	for _, selector := range selectors {
		var texts []string
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				texts = append(texts, text)
			}
			return len(texts) < limit
		})
		if len(texts) > 0 {
			return texts
		}
	}
	return nil
}

// selectInts is selectTexts for numeric cells; unparsable cells are
// skipped rather than failing the scan.
func selectInts(doc *goquery.Document, selectors []string, limit int) []int {
	for _, selector := range selectors {
		var values []int
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if v, err := strconv.Atoi(strings.TrimSpace(sel.Text())); err == nil {
				values = append(values, v)
			}
			return len(values) < limit
		})
		if len(values) > 0 {
			return values
		}
	}
	return nil
}
