package services

import (
	"inhouse-league/models"

	"github.com/elliotchance/pie/v2"
)

// StreakBreakThreshold is the streak at which a loss counts as a broken streak.
const StreakBreakThreshold = 3

type ScoringRules struct {
	PointsWin   float64
	PointsLoss  float64
	StreakBonus map[int]float64
}

func RulesFrom(cp ConfigProvider) ScoringRules {
	return ScoringRules{
		PointsWin:   cp.PointsWin(),
		PointsLoss:  cp.PointsLoss(),
		StreakBonus: cp.StreakBonusTable(),
	}
}

// SettlementInput is everything a settlement depends on, read before any
// stat is touched.
type SettlementInput struct {
	WinnerSide int
	Winners    []string
	Losers     []string
	Streaks    map[string]int    // current streak of each participant
	Picks      map[string]string // player -> character
	Bets       []models.Bet
}

// StreakBonus sums the bonus of every threshold the streak reached.
func StreakBonus(streak int, table map[int]float64) float64 {
	total := 0.0
	for _, threshold := range pie.Sort(pie.Keys(table)) {
		if streak >= threshold {
			total += table[threshold]
		}
	}
	return total
}

// ComputeSettlement derives the stat changes of one settlement. It is pure:
// the caller applies the returned delta.
func ComputeSettlement(in SettlementInput, rules ScoringRules) models.SettlementDelta {
	delta := models.SettlementDelta{
		WinnerSide: in.WinnerSide,
		Players:    map[string]models.PlayerDelta{},
	}

	bonus := 0.0
	broken := 0
	for _, id := range in.Losers {
		streak := in.Streaks[id]
		bonus += StreakBonus(streak, rules.StreakBonus)
		if streak >= StreakBreakThreshold {
			broken++
		}
	}

	for _, id := range in.Winners {
		before := in.Streaks[id]
		delta.Players[id] = models.PlayerDelta{
			Participant:   true,
			Score:         rules.PointsWin + bonus,
			Wins:          1,
			Played:        1,
			StreaksBroken: broken,
			StreakBefore:  before,
			StreakAfter:   before + 1,
		}
		if character := in.Picks[id]; character != "" {
			delta.Characters = append(delta.Characters, models.CharacterDelta{
				PlayerID: id, CharacterID: character, Played: 1, Wins: 1, StreaksBroken: broken,
			})
		}
	}

	for _, id := range in.Losers {
		delta.Players[id] = models.PlayerDelta{
			Participant:  true,
			Score:        rules.PointsLoss,
			Losses:       1,
			Played:       1,
			StreakBefore: in.Streaks[id],
			StreakAfter:  0,
		}
		if character := in.Picks[id]; character != "" {
			delta.Characters = append(delta.Characters, models.CharacterDelta{
				PlayerID: id, CharacterID: character, Played: 1,
			})
		}
	}

	for _, bet := range in.Bets {
		if bet.Side != in.WinnerSide {
			continue
		}
		pd := delta.Players[bet.PlayerID]
		pd.CorrectBets++
		delta.Players[bet.PlayerID] = pd
	}

	return delta
}
