package services

import (
	"context"
	"errors"

	"inhouse-league/models"
	"inhouse-league/notify"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// BetService takes bets on in-progress matches until their deadline.
type BetService struct {
	e *Engine
}

type BetCount struct {
	MatchID string `json:"match_id"`
	Team1   int64  `json:"team1"`
	Team2   int64  `json:"team2"`
}

func (s *BetService) Place(ctx context.Context, matchID, playerID string, side int) (*models.Bet, error) {
	if err := validSideOrErr(side); err != nil {
		return nil, err
	}
	e := s.e
	var bet *models.Bet
	err := e.withMatch(ctx, matchID, func(tx *gorm.DB, m *models.Match) error {
		if m.Status != models.MatchStatusInProgress {
			return invalidState("match_not_in_progress", "match is %s", m.Status)
		}
		now := e.clock()
		if m.BetDeadline == nil || now.After(*m.BetDeadline) {
			return invalidState("bet_window_closed", "bets for this match are closed")
		}

		var player models.Player
		if err := tx.Select("id").First(&player, "id = ?", playerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user_not_found", "player %s not found", playerID)
			}
			return eris.Wrap(err, "load bettor")
		}

		var existing int64
		if err := tx.Model(&models.Bet{}).Where("match_id = ? AND player_id = ?", m.ID, playerID).Count(&existing).Error; err != nil {
			return eris.Wrap(err, "check existing bet")
		}
		if existing > 0 {
			return conflict("bet_already_placed", "player %s already bet on this match", playerID)
		}

		bet = &models.Bet{ID: uuid.NewString(), MatchID: m.ID, PlayerID: playerID, Side: side, PlacedAt: now}
		if err := tx.Create(bet).Error; err != nil {
			return eris.Wrap(err, "create bet")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.BetPlaced()
	e.publish(notify.EventBetsUpdate, matchID)
	return bet, nil
}

func (s *BetService) Count(ctx context.Context, matchID string) (*BetCount, error) {
	db := s.e.DB.WithContext(ctx)
	if _, err := loadMatch(db, matchID); err != nil {
		return nil, err
	}
	var rows []struct {
		Side  int
		Total int64
	}
	err := db.Model(&models.Bet{}).
		Select("side, COUNT(*) AS total").
		Where("match_id = ?", matchID).
		Group("side").
		Scan(&rows).Error
	if err != nil {
		return nil, eris.Wrap(err, "count bets")
	}
	out := &BetCount{MatchID: matchID}
	for _, r := range rows {
		switch r.Side {
		case 1:
			out.Team1 = r.Total
		case 2:
			out.Team2 = r.Total
		}
	}
	return out, nil
}

// List returns the bets on a match in the order they were placed.
func (s *BetService) List(ctx context.Context, matchID string) ([]models.Bet, error) {
	bets := []models.Bet{}
	if err := s.e.DB.WithContext(ctx).Where("match_id = ?", matchID).Order("placed_at ASC").Find(&bets).Error; err != nil {
		return nil, eris.Wrap(err, "list bets")
	}
	return bets, nil
}
