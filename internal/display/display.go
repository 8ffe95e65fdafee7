// Package display renders leaderboards, event listings and extraction
// results as terminal tables.
package display

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/myusername/dartconnect-event-scraper/pkg/archive"
	"github.com/myusername/dartconnect-event-scraper/pkg/models"
	"github.com/myusername/dartconnect-event-scraper/pkg/store"
)

// Leaderboard writes the standings table.
func Leaderboard(w io.Writer, entries []store.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No players recorded yet.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{
		"Rank", "Player", "3DA", "Matches", "Won", "Win %",
		"Legs", "180s", "160+", "140+", "100+", "HF", "CO %", "Events",
	})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Rank,
			e.Name,
			fmt.Sprintf("%.2f", e.WeightedAverage),
			e.TotalMatches,
			e.MatchesWon,
			fmt.Sprintf("%.1f", e.WinPercent),
			e.TotalLegs,
			e.Total180s,
			e.Total160Plus,
			e.Total140Plus,
			e.Total100Plus,
			e.HighestFinish,
			fmt.Sprintf("%.1f", e.CheckoutPercent),
			e.EventsPlayed,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// Events writes the archived-event summary table.
func Events(w io.Writer, events []archive.EventSummary) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events archived yet.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Event", "Matches", "Completed", "Pending", "Created", "Status"})
	for _, e := range events {
		t.AppendRow(table.Row{
			e.EventID, e.TotalMatches, e.Completed, e.Pending, e.CreatedAt, e.Status,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// Matches writes the discovered-match listing.
func Matches(w io.Writer, matches []models.MatchReference) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Type", "Phase", "Title", "URL"})
	for i, m := range matches {
		number := m.MatchNumber
		if number == 0 {
			number = i + 1
		}
		t.AppendRow(table.Row{number, string(m.MatchType), m.Phase.Label(), m.Title, m.URL})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// Stats writes per-player extracted statistics for one match.
func Stats(w io.Writer, stats []models.PlayerMatchStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No statistics found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{
		"Player", "3DA", "Legs", "Won", "180s", "160+", "140+", "100+", "HF", "Score",
	})
	for _, s := range stats {
		t.AppendRow(table.Row{
			s.PlayerName,
			fmt.Sprintf("%.2f", s.ThreeDartAverage),
			s.LegsPlayed,
			s.LegsWon,
			s.Count180s,
			s.Count160Plus,
			s.Count140Plus,
			s.Count100Plus,
			s.HighestFinish,
			s.MatchScore,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// Matchups writes seeded knockout pairings.
func Matchups(w io.Writer, label string, pairs [][2]string) {
	fmt.Fprintln(w, label)
	for i, pair := range pairs {
		fmt.Fprintf(w, "  %d. %s vs %s\n", i+1, pair[0], pair[1])
	}
}
