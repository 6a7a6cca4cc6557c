package models

import "time"

// QueueTicket is one waiting player. The auto-increment ID is the arrival order.
type QueueTicket struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID string    `gorm:"uniqueIndex;not null;type:varchar(36)" json:"player_id"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}
