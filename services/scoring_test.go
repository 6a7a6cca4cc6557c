package services

import (
	"testing"

	"inhouse-league/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultRules = ScoringRules{
	PointsWin:   1,
	PointsLoss:  0,
	StreakBonus: map[int]float64{3: 0.25, 6: 0.5, 9: 1.0},
}

func TestStreakBonus(t *testing.T) {
	cases := []struct {
		streak int
		want   float64
	}{
		{0, 0},
		{2, 0},
		{3, 0.25},
		{5, 0.25},
		{6, 0.75},
		{8, 0.75},
		{9, 1.75},
		{14, 1.75},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, StreakBonus(tc.streak, defaultRules.StreakBonus), 1e-9, "streak %d", tc.streak)
	}
	assert.Zero(t, StreakBonus(10, nil))
}

func TestComputeSettlementPlainWin(t *testing.T) {
	in := SettlementInput{
		WinnerSide: 1,
		Winners:    []string{"a", "b", "c"},
		Losers:     []string{"d", "e", "f"},
		Streaks:    map[string]int{"a": 2, "b": 0, "c": 0, "d": 1, "e": 2, "f": 0},
		Picks:      map[string]string{"a": "Jade", "d": "Rook"},
	}
	d := ComputeSettlement(in, defaultRules)

	assert.Equal(t, 1, d.WinnerSide)
	require.Len(t, d.Players, 6)
	a := d.Players["a"]
	assert.True(t, a.Participant)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.Played)
	assert.Equal(t, 2, a.StreakBefore)
	assert.Equal(t, 3, a.StreakAfter)
	assert.InDelta(t, 1.0, a.Score, 1e-9)
	assert.Zero(t, a.StreaksBroken)

	e := d.Players["e"]
	assert.Equal(t, 1, e.Losses)
	assert.Equal(t, 2, e.StreakBefore)
	assert.Zero(t, e.StreakAfter)
	assert.Zero(t, e.Score)

	assert.ElementsMatch(t, []models.CharacterDelta{
		{PlayerID: "a", CharacterID: "Jade", Played: 1, Wins: 1},
		{PlayerID: "d", CharacterID: "Rook", Played: 1},
	}, d.Characters)
}

func TestComputeSettlementBreaksStreak(t *testing.T) {
	in := SettlementInput{
		WinnerSide: 2,
		Winners:    []string{"d", "e", "f"},
		Losers:     []string{"a", "b", "c"},
		Streaks:    map[string]int{"a": 6, "b": 0, "c": 0},
		Picks:      map[string]string{"d": "Ashka", "e": "Bakko", "f": "Croak"},
	}
	d := ComputeSettlement(in, defaultRules)

	for _, id := range in.Winners {
		assert.InDelta(t, 1.75, d.Players[id].Score, 1e-9, id)
		assert.Equal(t, 1, d.Players[id].StreaksBroken, id)
	}
	assert.Equal(t, 6, d.Players["a"].StreakBefore)
	assert.Zero(t, d.Players["a"].StreakAfter)
	for _, cd := range d.Characters {
		assert.Equal(t, 1, cd.StreaksBroken, cd.CharacterID)
	}
}

func TestComputeSettlementSumsBonusesOfAllLosers(t *testing.T) {
	in := SettlementInput{
		WinnerSide: 1,
		Winners:    []string{"a", "b", "c"},
		Losers:     []string{"d", "e", "f"},
		Streaks:    map[string]int{"d": 3, "e": 9, "f": 2},
	}
	d := ComputeSettlement(in, defaultRules)

	// 1 + 0.25 (d) + 1.75 (e)
	assert.InDelta(t, 3.0, d.Players["a"].Score, 1e-9)
	assert.Equal(t, 2, d.Players["a"].StreaksBroken)
}

func TestComputeSettlementWithoutBonusTable(t *testing.T) {
	rules := ScoringRules{PointsWin: 2, PointsLoss: -1}
	in := SettlementInput{
		WinnerSide: 1,
		Winners:    []string{"a", "b", "c"},
		Losers:     []string{"d", "e", "f"},
		Streaks:    map[string]int{"d": 9},
	}
	d := ComputeSettlement(in, rules)
	assert.InDelta(t, 2.0, d.Players["a"].Score, 1e-9)
	assert.InDelta(t, -1.0, d.Players["d"].Score, 1e-9)
	assert.Equal(t, 1, d.Players["a"].StreaksBroken)
}

func TestComputeSettlementCountsCorrectBets(t *testing.T) {
	in := SettlementInput{
		WinnerSide: 1,
		Winners:    []string{"a", "b", "c"},
		Losers:     []string{"d", "e", "f"},
		Bets: []models.Bet{
			{PlayerID: "spectator", Side: 1},
			{PlayerID: "skeptic", Side: 2},
			{PlayerID: "d", Side: 1},
		},
	}
	d := ComputeSettlement(in, defaultRules)

	spectator := d.Players["spectator"]
	assert.False(t, spectator.Participant)
	assert.Equal(t, 1, spectator.CorrectBets)
	assert.Zero(t, spectator.Played)

	_, ok := d.Players["skeptic"]
	assert.False(t, ok, "wrong bets leave no delta")

	loser := d.Players["d"]
	assert.True(t, loser.Participant)
	assert.Equal(t, 1, loser.CorrectBets)
	assert.Equal(t, 1, loser.Losses)
}
