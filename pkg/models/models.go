// Package models contains data structures shared by the discovery,
// extraction, storage and archive components.
package models

// Phase identifies the competition phase a match belongs to.
type Phase string

const (
	PhaseFinal        Phase = "final"
	PhaseSemifinal    Phase = "semifinal"
	PhaseQuarterfinal Phase = "quarterfinal"
	PhaseRoundRobin   Phase = "round_robin"
)

// Label returns the display form of the phase, e.g. "Round Robin".
func (p Phase) Label() string {
	switch p {
	case PhaseFinal:
		return "Final"
	case PhaseSemifinal:
		return "Semifinal"
	case PhaseQuarterfinal:
		return "Quarterfinal"
	case PhaseRoundRobin:
		return "Round Robin"
	}
	return string(p)
}

// MatchType distinguishes knockout matches from round-robin group matches.
type MatchType string

const (
	MatchTypeKnockout   MatchType = "Knockout"
	MatchTypeRoundRobin MatchType = "Round Robin"
)

// MatchStatus tracks how far a discovered match has been processed.
type MatchStatus string

const (
	StatusPending   MatchStatus = "pending"
	StatusCompleted MatchStatus = "completed"
	StatusError     MatchStatus = "error"
)

// MatchReference identifies a single discoverable match within an event.
// The URL is the unique key; everything else is descriptive metadata
// derived at discovery time.
type MatchReference struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	MatchNumber int       `json:"match_number"`
	MatchType   MatchType `json:"match_type"`
	Phase       Phase     `json:"phase"`
	GroupName   string    `json:"group_name,omitempty"`
	HomePlayer  string    `json:"home_player,omitempty"`
	AwayPlayer  string    `json:"away_player,omitempty"`
}

// PlayerMatchStats holds one player's statistics for one match, as
// extracted from a recap page. Threshold counts are heuristic
// approximations derived from per-leg PPR summaries, not a dart-by-dart
// reconstruction.
type PlayerMatchStats struct {
	PlayerName string `json:"player_name"`
	MatchID    string `json:"match_id"`

	ThreeDartAverage float64 `json:"three_dart_average"`

	LegsPlayed int `json:"legs_played"`
	LegsWon    int `json:"legs_won"`
	LegsLost   int `json:"legs_lost"`
	SetsPlayed int `json:"sets_played"`
	SetsWon    int `json:"sets_won"`

	Count180s     int `json:"count_180s"`
	Count160Plus  int `json:"count_160_plus"`
	Count140Plus  int `json:"count_140_plus"`
	Count100Plus  int `json:"count_100_plus"`
	HighestFinish int `json:"highest_finish"`

	DoubleAttempts int `json:"double_attempts"`
	DoublesHit     int `json:"doubles_hit"`

	MatchWon   int    `json:"match_won"`
	MatchScore string `json:"match_score,omitempty"`
}

// MatchResult is a quick first-pass result for a recap page: who played,
// the score line and the winner, without the detailed statistics.
type MatchResult struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Score   string `json:"score"`
	Winner  string `json:"winner"`
	Phase   Phase  `json:"phase"`
	Group   string `json:"group,omitempty"`
}
