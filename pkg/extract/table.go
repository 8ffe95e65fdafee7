package extract

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

// tableTier parses generic HTML statistics tables. It recognizes a table
// by keywords in its header cells and maps header text to semantic
// columns through substring matching against a fixed synonym list.
type tableTier struct {
	logger *slog.Logger
}

func (t *tableTier) Name() string { return "html-table" }

// statsTableKeywords mark a table as worth parsing at all.
var statsTableKeywords = []string{"average", "dart", "180", "140", "finish", "player"}

// columnSynonyms maps each semantic column to the header substrings that
// denote it. Order within a list matters: the first header containing a
// synonym claims the column.
var columnSynonyms = map[string][]string{
	"name":        {"name", "player"},
	"average":     {"average", "avg", "3-dart avg", "3da", "dart average"},
	"180s":        {"180s", "180", "maximum"},
	"160+":        {"160+", "160"},
	"140+":        {"140+", "140", "tons plus", "ton+"},
	"100+":        {"100+", "100", "tons", "ton"},
	"high_finish": {"high finish", "highest finish", "hf", "high out"},
	"legs":        {"legs", "legs played", "played"},
}

func (t *tableTier) Extract(page *Page) []models.PlayerMatchStats {
	var stats []models.PlayerMatchStats

	page.Doc.Find("table").Each(func(i int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := headerTexts(rows.First())
		if !looksLikeStatsTable(headers) {
			return
		}

		columns := mapColumns(headers)
		t.logger.Debug("parsing stats table", "url", page.URL, "table", i, "headers", headers)

		rows.Each(func(rowIdx int, row *goquery.Selection) {
			if rowIdx == 0 {
				return
			}
			if player, ok := t.parseRow(row, columns, page.MatchID); ok {
				stats = append(stats, player)
			}
		})
	})

	return stats
}

func headerTexts(headerRow *goquery.Selection) []string {
	var headers []string
	headerRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
	})
	return headers
}

func looksLikeStatsTable(headers []string) bool {
	joined := strings.Join(headers, " ")
	for _, keyword := range statsTableKeywords {
		if strings.Contains(joined, keyword) {
			return true
		}
	}
	return false
}

// fieldOrder fixes the resolution order so more specific fields claim
// their header cell before looser synonym lists get a chance, e.g.
// "140+" is claimed before "100+" can match a "140" header via "ton".
var fieldOrder = []string{"name", "average", "180s", "160+", "140+", "100+", "high_finish", "legs"}

// mapColumns resolves each semantic field to a header index, -1 if the
// table does not carry it. Each header cell is claimed at most once.
func mapColumns(headers []string) map[string]int {
	columns := make(map[string]int, len(columnSynonyms))
	claimed := make(map[int]bool)
	for _, field := range fieldOrder {
		columns[field] = -1
		for i, header := range headers {
			if claimed[i] {
				continue
			}
			if containsAny(header, columnSynonyms[field]) {
				columns[field] = i
				claimed[i] = true
				break
			}
		}
	}
	return columns
}

func containsAny(header string, synonyms []string) bool {
	for _, s := range synonyms {
		if strings.Contains(header, s) {
			return true
		}
	}
	return false
}

// parseRow turns one data row into a player record. A row is accepted
// only if it carries a parseable positive average; every other field
// falls back to an explicit numeric default instead of failing the row.
func (t *tableTier) parseRow(row *goquery.Selection, columns map[string]int, matchID string) (models.PlayerMatchStats, bool) {
	var cells []string
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(cell.Text()))
	})
	if len(cells) < 2 {
		return models.PlayerMatchStats{}, false
	}

	name := cellAt(cells, columns["name"], cells[0])
	name = strings.TrimSpace(name)
	if len(name) < 2 || strings.EqualFold(name, "player") {
		return models.PlayerMatchStats{}, false
	}

	averageIdx := columns["average"]
	if averageIdx < 0 {
		averageIdx = 1
	}
	average := parseAverage(numericPart(cellAt(cells, averageIdx, "")))
	if average <= 0 {
		return models.PlayerMatchStats{}, false
	}

	return models.PlayerMatchStats{
		PlayerName:       name,
		MatchID:          matchID,
		ThreeDartAverage: average,
		LegsPlayed:       intCell(cells, columns["legs"], 1),
		Count180s:        intCell(cells, columns["180s"], 0),
		Count160Plus:     intCell(cells, columns["160+"], 0),
		Count140Plus:     intCell(cells, columns["140+"], 0),
		Count100Plus:     intCell(cells, columns["100+"], 0),
		HighestFinish:    intCell(cells, columns["high_finish"], 0),
	}, true
}

func cellAt(cells []string, index int, fallback string) string {
	if index < 0 || index >= len(cells) {
		return fallback
	}
	return cells[index]
}

func intCell(cells []string, index, fallback int) int {
	raw := digitsOnly(cellAt(cells, index, ""))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
