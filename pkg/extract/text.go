package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

// playerAveragePatterns match lines like "Joe Smith: 78.45 avg" and
// "Joe Smith 78.45 average" in rendered page text.
var playerAveragePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([A-Za-z\s]+):\s*(\d+\.?\d*)\s*avg`),
	regexp.MustCompile(`(?i)([A-Za-z\s]+?)\s+(\d+\.?\d*)\s+average`),
}

// freeTextTier is the weakest HTML tier: regex-scan the page's rendered
// text for name/average pairs.
type freeTextTier struct {
	logger *slog.Logger
}

func (t *freeTextTier) Name() string { return "free-text" }

func (t *freeTextTier) Extract(page *Page) []models.PlayerMatchStats {
	return statsFromText(page.Doc.Text(), page.MatchID)
}

// statsFromText is shared between the free-text tier and the PDF path.
// A match is accepted only for a non-trivial name and a positive average.
func statsFromText(text, matchID string) []models.PlayerMatchStats {
	var stats []models.PlayerMatchStats
	seen := make(map[string]bool)

	for _, pattern := range playerAveragePatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			average := parseAverage(m[2])
			if len(name) <= 2 || average <= 0 || seen[name] {
				continue
			}
			seen[name] = true
			stats = append(stats, models.PlayerMatchStats{
				PlayerName:       name,
				MatchID:          matchID,
				ThreeDartAverage: average,
				LegsPlayed:       1, // not recorded in this representation
			})
		}
	}
	return stats
}

// extractFromPDF handles operator-uploaded PDF scoresheets: download the
// document, pull its plain text, and run the same free-text patterns the
// HTML tier uses.
func (e *Engine) extractFromPDF(ctx context.Context, pdfURL string) ([]models.PlayerMatchStats, error) {
	body, err := e.fetcher.FetchBytes(ctx, pdfURL)
	if err != nil {
		return nil, fmt.Errorf("downloading PDF scoresheet: %w", err)
	}

	text, err := pdfText(body)
	if err != nil {
		e.logger.Warn("could not read PDF scoresheet", "url", pdfURL, "error", err)
		return nil, nil
	}

	stats := statsFromText(text, MatchIDFromURL(pdfURL))
	if len(stats) > 0 {
		e.logger.Info("extracted player stats",
			"url", pdfURL, "tier", "pdf-scoresheet", "players", len(stats))
	}
	return stats, nil
}

// pdfText extracts the plain text of a PDF document.
func pdfText(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	plainText, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from PDF: %w", err)
	}
	content, err := io.ReadAll(plainText)
	if err != nil {
		return "", fmt.Errorf("reading plain text from PDF: %w", err)
	}
	return string(content), nil
}
