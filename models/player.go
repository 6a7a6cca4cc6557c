package models

// Player is a registered participant. Players are never deleted; their stats
// only move through settlements and settlement reverts.
type Player struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name   string `gorm:"not null" json:"name"`
	Handle string `gorm:"uniqueIndex;not null" json:"handle"` // slug of Name
	IsBot  bool   `gorm:"default:false" json:"is_bot"`

	Stats PlayerStats `gorm:"embedded" json:"stats"`

	Timestamps
}

// PlayerStats are the cumulative counters of a player (denormalized for the leaderboard)
type PlayerStats struct {
	Played        int     `gorm:"default:0" json:"played"`
	Wins          int     `gorm:"default:0" json:"wins"`
	Losses        int     `gorm:"default:0" json:"losses"`
	CurrentStreak int     `gorm:"default:0" json:"current_streak"`
	MaxStreak     int     `gorm:"default:0" json:"max_streak"`
	StreaksBroken int     `gorm:"default:0" json:"streaks_broken"`
	CorrectBets   int     `gorm:"default:0" json:"correct_bets"`
	Score         float64 `gorm:"default:0" json:"score"`
}

// CharacterStat tracks how a player does with one character.
type CharacterStat struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PlayerID      string `gorm:"uniqueIndex:idx_character_stat_player_character;not null" json:"player_id"`
	CharacterID   string `gorm:"uniqueIndex:idx_character_stat_player_character;not null" json:"character_id"`
	Played        int    `gorm:"default:0" json:"played"`
	Wins          int    `gorm:"default:0" json:"wins"`
	StreaksBroken int    `gorm:"default:0" json:"streaks_broken"`

	Timestamps
}
