package models

import "time"

type Bet struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MatchID  string    `gorm:"uniqueIndex:idx_bet_match_player;not null;type:varchar(36)" json:"match_id"`
	PlayerID string    `gorm:"uniqueIndex:idx_bet_match_player;not null;type:varchar(36)" json:"player_id"`
	Side     int       `gorm:"not null" json:"team"`
	PlacedAt time.Time `gorm:"not null" json:"placed_at"`
}
