package models

import (
	"database/sql/driver"
	"time"
)

type MatchStatus string

func (s MatchStatus) Value() (driver.Value, error) {
	return string(s), nil
}

const (
	MatchStatusDraft      MatchStatus = "draft"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
	MatchStatusCanceled   MatchStatus = "canceled"
)

const (
	TeamSize    = 3
	MatchSize   = 2 * TeamSize
	DraftRounds = TeamSize
)

// ActiveStatuses are the non-terminal statuses. A player belongs to at most
// one match in these statuses.
func ActiveStatuses() []string {
	return []string{string(MatchStatusDraft), string(MatchStatusInProgress)}
}

// Match is one 3v3 game from draft to settlement.
type Match struct {
	ID         string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MapName    string      `gorm:"not null" json:"map"`
	Status     MatchStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	DraftRound int         `gorm:"default:0" json:"draft_round"`

	Team1 []string          `gorm:"type:text;serializer:json" json:"team1"`
	Team2 []string          `gorm:"type:text;serializer:json" json:"team2"`
	Picks map[string]string `gorm:"type:text;serializer:json" json:"picks"` // player id -> character

	WinnerSide    int              `gorm:"default:0" json:"winner_side,omitempty"`
	Reports       ResultReports    `gorm:"type:text;serializer:json" json:"reports"`
	Snapshot      *SettlementDelta `gorm:"type:text;serializer:json" json:"settlement,omitempty"`
	SettlementSeq int              `gorm:"default:0" json:"settlement_seq"`

	// players whose streak was at least 3 when the match was created
	StreakHolders []string `gorm:"type:text;serializer:json" json:"streak_holders"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	BetDeadline *time.Time `json:"bet_deadline,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	ArchivedAt  *time.Time `gorm:"index" json:"archived_at,omitempty"`

	Timestamps
}

// MatchSeat indexes which player sits where, so membership lookups do not
// need to scan the JSON rosters.
type MatchSeat struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MatchID  string `gorm:"index;not null;type:varchar(36)" json:"match_id"`
	PlayerID string `gorm:"index;not null;type:varchar(36)" json:"player_id"`
	Side     int    `gorm:"not null" json:"side"`
	Seat     int    `gorm:"not null" json:"seat"`
}

// ResultReport is one side's claim about the winner.
type ResultReport struct {
	Winner     int       `json:"winner"`
	ReporterID string    `json:"reporter_id"`
	ReportedAt time.Time `json:"reported_at"`
}

type ResultReports struct {
	Team1 *ResultReport `json:"team1,omitempty"`
	Team2 *ResultReport `json:"team2,omitempty"`
}

func (r *ResultReports) Set(side int, rep ResultReport) {
	if side == 1 {
		r.Team1 = &rep
	} else {
		r.Team2 = &rep
	}
}

func (r ResultReports) Get(side int) *ResultReport {
	if side == 1 {
		return r.Team1
	}
	return r.Team2
}

func (m *Match) IsActive() bool {
	return m.Status == MatchStatusDraft || m.Status == MatchStatusInProgress
}

// Team returns the roster of side 1 or 2.
func (m *Match) Team(side int) []string {
	if side == 1 {
		return m.Team1
	}
	return m.Team2
}

// Players returns both rosters, team1 first.
func (m *Match) Players() []string {
	out := make([]string, 0, len(m.Team1)+len(m.Team2))
	out = append(out, m.Team1...)
	return append(out, m.Team2...)
}

// SeatOf returns the side and seat index of a player, or side 0 when the
// player is not on either roster.
func (m *Match) SeatOf(playerID string) (side, seat int) {
	for i, id := range m.Team1 {
		if id == playerID {
			return 1, i
		}
	}
	for i, id := range m.Team2 {
		if id == playerID {
			return 2, i
		}
	}
	return 0, -1
}

func (m *Match) Pick(playerID string) string {
	if m.Picks == nil {
		return ""
	}
	return m.Picks[playerID]
}

func (m *Match) SetPick(playerID, characterID string) {
	if m.Picks == nil {
		m.Picks = map[string]string{}
	}
	m.Picks[playerID] = characterID
}

// OtherSide maps 1 to 2 and 2 to 1.
func OtherSide(side int) int {
	return 3 - side
}

func ValidSide(side int) bool {
	return side == 1 || side == 2
}
