package models

import "time"

// SettlementDelta records every stat change one settlement applied, so the
// settlement can be reverted exactly.
type SettlementDelta struct {
	WinnerSide int                    `json:"winner_side"`
	SettledAt  time.Time              `json:"settled_at"`
	Players    map[string]PlayerDelta `json:"players"`
	Characters []CharacterDelta       `json:"characters"`
}

type PlayerDelta struct {
	// Participant is false for bettors who did not play; their streak is untouched.
	Participant   bool    `json:"participant"`
	Score         float64 `json:"score"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Played        int     `json:"played"`
	StreaksBroken int     `json:"streaks_broken"`
	CorrectBets   int     `json:"correct_bets"`
	StreakBefore  int     `json:"streak_before"`
	StreakAfter   int     `json:"streak_after"`
}

type CharacterDelta struct {
	PlayerID      string `json:"player_id"`
	CharacterID   string `json:"character_id"`
	Played        int    `json:"played"`
	Wins          int    `json:"wins"`
	StreaksBroken int    `json:"streaks_broken"`
}
