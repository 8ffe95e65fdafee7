package archive

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

// writeListing renders the human-readable match listing.
func (a *Archive) writeListing(path, eventID string, matches []models.MatchReference) error {
	roundRobin := 0
	for _, m := range matches {
		if m.MatchType == models.MatchTypeRoundRobin {
			roundRobin++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\n", eventID)
	fmt.Fprintf(&b, "Generated: %s\n", a.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total Matches: %d\n", len(matches))
	fmt.Fprintf(&b, "Round Robin: %d\n", roundRobin)
	fmt.Fprintf(&b, "Knockout: %d\n\n", len(matches)-roundRobin)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Type", "Phase", "Title", "URL"})
	for i, m := range matches {
		number := m.MatchNumber
		if number == 0 {
			number = i + 1
		}
		phase := m.Phase.Label()
		if m.GroupName != "" {
			phase = fmt.Sprintf("%s (Group %s)", phase, m.GroupName)
		}
		t.AppendRow(table.Row{number, string(m.MatchType), phase, m.Title, m.URL})
	}
	t.SetStyle(table.StyleLight)
	b.WriteString(t.Render())
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing match listing: %w", err)
	}
	return nil
}
