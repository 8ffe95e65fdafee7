package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/myusername/dartconnect-event-scraper/pkg/models"
)

// embeddedJSONTier reads the JSON blob the recap app embeds in its root
// element. This is the richest representation: match totals per opponent
// plus a nested leg-by-leg breakdown.
type embeddedJSONTier struct {
	logger *slog.Logger
}

func (t *embeddedJSONTier) Name() string { return "embedded-json" }

// pageData mirrors the embedded payload. The feed is loosely typed:
// numbers arrive as strings or floats depending on the field and the
// recap's age, so several fields stay `any` and go through coercion
// helpers.
type pageData struct {
	Props struct {
		MatchInfo   matchInfo                `json:"matchInfo"`
		Segments    map[string][][]legRecord `json:"segments"`
		HomePlayers []rosterEntry            `json:"homePlayers"`
		AwayPlayers []rosterEntry            `json:"awayPlayers"`
	} `json:"props"`
}

type matchInfo struct {
	Opponents  []opponent `json:"opponents"`
	TotalGames any        `json:"total_games"`
	TotalSets  any        `json:"total_sets"`
}

type opponent struct {
	Name    string `json:"name"`
	PPR     any    `json:"ppr"`
	LegWins any    `json:"leg_wins"`
	SetWins any    `json:"set_wins"`
	Score   any    `json:"score"`
}

type rosterEntry struct {
	Name string `json:"name"`
}

// legRecord is one leg; each side holds that player's summary for it.
type legRecord struct {
	Home *legSide `json:"home"`
	Away *legSide `json:"away"`
}

type legSide struct {
	StartingPoints  any `json:"starting_points"`
	EndingPoints    any `json:"ending_points"`
	PPR             any `json:"ppr"`
	Win             any `json:"win"`
	DoubleOutPoints any `json:"double_out_points"`
}

func (t *embeddedJSONTier) Extract(page *Page) []models.PlayerMatchStats {
	dataPage, exists := page.Doc.Find("div#app").Attr("data-page")
	if !exists || dataPage == "" {
		return nil
	}

	var data pageData
	if err := json.Unmarshal([]byte(dataPage), &data); err != nil {
		t.logger.Warn("embedded payload is not valid JSON", "url", page.URL, "error", err)
		return nil
	}

	opponents := data.Props.MatchInfo.Opponents
	if len(opponents) < 2 {
		return nil
	}
	// Recaps describe exactly two opponents; anything extra is feed noise.
	opponents = opponents[:2]

	legTotals := tallyLegs(data.Props.Segments)

	totalLegs := asInt(data.Props.MatchInfo.TotalGames)
	totalSets := asInt(data.Props.MatchInfo.TotalSets)
	if totalSets == 0 {
		totalSets = 1
	}

	var stats []models.PlayerMatchStats
	for idx, opp := range opponents {
		name := t.resolveName(idx, opp, &data)
		if name == "" {
			t.logger.Warn("skipping opponent with no name", "url", page.URL, "index", idx)
			continue
		}

		legsWon := asInt(opp.LegWins)
		setsWon := asInt(opp.SetWins)
		tally := legTotals[idx]

		matchWon := 0
		if asFloat(opp.Score) > asFloat(opponents[1-idx].Score) {
			matchWon = 1
		}

		stats = append(stats, models.PlayerMatchStats{
			PlayerName:       name,
			MatchID:          page.MatchID,
			ThreeDartAverage: asFloat(opp.PPR),
			LegsPlayed:       totalLegs,
			LegsWon:          legsWon,
			LegsLost:         totalLegs - legsWon,
			SetsPlayed:       totalSets,
			SetsWon:          setsWon,
			Count180s:        tally.count180s,
			Count160Plus:     tally.count160Plus,
			Count140Plus:     tally.count140Plus,
			Count100Plus:     tally.count100Plus,
			HighestFinish:    tally.highestFinish,
			DoubleAttempts:   tally.doubleAttempts,
			DoublesHit:       tally.doublesHit,
			MatchWon:         matchWon,
			MatchScore:       fmt.Sprintf("%d-%d", asInt(opp.Score), asInt(opponents[1-idx].Score)),
		})
	}
	return stats
}

// resolveName prefers the full roster lists over the opponent's short
// display name.
func (t *embeddedJSONTier) resolveName(idx int, opp opponent, data *pageData) string {
	name := opp.Name
	if idx == 0 && len(data.Props.HomePlayers) > 0 && data.Props.HomePlayers[0].Name != "" {
		name = data.Props.HomePlayers[0].Name
	} else if idx == 1 && len(data.Props.AwayPlayers) > 0 && data.Props.AwayPlayers[0].Name != "" {
		name = data.Props.AwayPlayers[0].Name
	}
	return name
}

// legTally accumulates the heuristic per-leg statistics for one player.
type legTally struct {
	count180s      int
	count160Plus   int
	count140Plus   int
	count100Plus   int
	highestFinish  int
	doubleAttempts int
	doublesHit     int
}

// tallyLegs walks every leg of every set in every segment and buckets
// each player's leg summary through the PPR thresholds. Checkouts are
// inferred from a won leg with a positive double-out value; double
// attempts from the leg ending inside checkout range.
func tallyLegs(segments map[string][][]legRecord) map[int]*legTally {
	totals := map[int]*legTally{0: {}, 1: {}}

	for _, sets := range segments {
		for _, legs := range sets {
			for _, leg := range legs {
				for idx, side := range []*legSide{leg.Home, leg.Away} {
					if side == nil {
						continue
					}
					tally := totals[idx]

					ppr := asFloat(side.PPR)
					if ppr >= PPRFor100Plus {
						tally.count100Plus++
					}
					if ppr >= PPRFor140Plus {
						tally.count140Plus++
					}
					if ppr >= PPRFor160Plus {
						tally.count160Plus++
					}
					if ppr >= PPRFor180 {
						tally.count180s++
					}

					if asBool(side.Win) {
						if doubleOut := asInt(side.DoubleOutPoints); doubleOut > 0 {
							tally.doublesHit++
							if doubleOut > tally.highestFinish {
								tally.highestFinish = doubleOut
							}
						}
					}

					if asInt(side.EndingPoints) <= MaxReachableFinish {
						tally.doubleAttempts++
					}
				}
			}
		}
	}
	return totals
}
