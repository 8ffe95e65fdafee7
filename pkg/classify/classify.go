// Package classify maps a match's ordinal position within an event to its
// competition phase and round-robin group.
package classify

import "github.com/myusername/dartconnect-event-scraper/pkg/models"

// AADS events share a fixed bracket layout: the feed lists the final
// first, then semifinals, quarterfinals, and the two round-robin groups.
const (
	finalPosition        = 1
	lastSemifinal        = 3
	lastQuarterfinal     = 7
	lastGroupARoundRobin = 17
	lastGroupBRoundRobin = 27
)

// Classify returns the phase and group label for the 1-based match
// position n. Positions beyond the known bracket fall back to ungrouped
// round-robin. The mapping assumes the feed enumerates matches in bracket
// order, which is not verified against the source.
func Classify(n int) (models.Phase, string) {
	switch {
	case n <= finalPosition:
		return models.PhaseFinal, ""
	case n <= lastSemifinal:
		return models.PhaseSemifinal, ""
	case n <= lastQuarterfinal:
		return models.PhaseQuarterfinal, ""
	case n <= lastGroupARoundRobin:
		return models.PhaseRoundRobin, "A"
	case n <= lastGroupBRoundRobin:
		return models.PhaseRoundRobin, "B"
	}
	return models.PhaseRoundRobin, ""
}

// MatchType returns the knockout/round-robin type for position n.
func MatchType(n int) models.MatchType {
	if n <= lastQuarterfinal {
		return models.MatchTypeKnockout
	}
	return models.MatchTypeRoundRobin
}

// PhaseLabel builds the display label used in match titles, including the
// group suffix for round-robin matches, e.g. "Round Robin - Group A".
func PhaseLabel(n int) string {
	phase, group := Classify(n)
	label := phase.Label()
	if group != "" {
		label += " - Group " + group
	}
	return label
}
