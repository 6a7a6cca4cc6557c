package services

import (
	"context"
	"errors"

	"inhouse-league/models"
	"inhouse-league/notify"

	"github.com/elliotchance/pie/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QueueService keeps the waiting list. Every sixth arrival turns the six
// oldest tickets into a match.
type QueueService struct {
	e *Engine
}

type QueueStatus struct {
	Count   int64  `json:"queue_count"`
	Queued  bool   `json:"queued"`
	MatchID string `json:"match_id,omitempty"`
}

func (s *QueueService) Enter(ctx context.Context, playerID string) (*QueueStatus, error) {
	e := s.e
	e.formationMu.Lock()
	defer e.formationMu.Unlock()

	out := &QueueStatus{Queued: true}
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.Select("id").First(&player, "id = ?", playerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user_not_found", "player %s not found", playerID)
			}
			return eris.Wrap(err, "load player")
		}

		var queued int64
		if err := tx.Model(&models.QueueTicket{}).Where("player_id = ?", playerID).Count(&queued).Error; err != nil {
			return eris.Wrap(err, "check queue")
		}
		if queued > 0 {
			return conflict("already_in_queue", "player %s is already queued", playerID)
		}
		busy, err := activeMembers(tx, []string{playerID})
		if err != nil {
			return err
		}
		if len(busy) > 0 {
			return conflict("already_in_active_match", "player %s is already in an active match", playerID)
		}

		if err := tx.Create(&models.QueueTicket{PlayerID: playerID, JoinedAt: e.clock()}).Error; err != nil {
			return eris.Wrap(err, "create ticket")
		}

		var oldest []models.QueueTicket
		if err := tx.Order("id ASC").Limit(models.MatchSize).Find(&oldest).Error; err != nil {
			return eris.Wrap(err, "load queue")
		}
		if len(oldest) == models.MatchSize {
			ids := pie.Map(oldest, func(t models.QueueTicket) string { return t.PlayerID })
			tickets := pie.Map(oldest, func(t models.QueueTicket) uint64 { return t.ID })
			if err := tx.Where("id IN ?", tickets).Delete(&models.QueueTicket{}).Error; err != nil {
				return eris.Wrap(err, "consume tickets")
			}
			m, err := e.createMatch(tx, ids)
			if err != nil {
				return err
			}
			out.MatchID = m.ID
		}

		return countQueue(tx, &out.Count)
	})
	if err != nil {
		return nil, err
	}

	e.metrics.QueueSize(int(out.Count))
	e.publish(notify.EventQueueUpdate, "")
	if out.MatchID != "" {
		e.metrics.MatchCreated("queue")
		e.log.WithFields(logrus.Fields{"match_id": out.MatchID, "queue_count": out.Count}).Info("queue formed a match")
		e.publish(notify.EventMatchCreated, out.MatchID)
	}
	return out, nil
}

// Leave removes the player's ticket. Leaving without a ticket is a no-op.
func (s *QueueService) Leave(ctx context.Context, playerID string) (*QueueStatus, error) {
	e := s.e
	e.formationMu.Lock()
	defer e.formationMu.Unlock()

	out := &QueueStatus{}
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("player_id = ?", playerID).Delete(&models.QueueTicket{}).Error; err != nil {
			return eris.Wrap(err, "delete ticket")
		}
		return countQueue(tx, &out.Count)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.QueueSize(int(out.Count))
	e.publish(notify.EventQueueUpdate, "")
	return out, nil
}

// Status reports the queue size and, when playerID is set, whether that
// player is waiting.
func (s *QueueService) Status(ctx context.Context, playerID string) (*QueueStatus, error) {
	db := s.e.DB.WithContext(ctx)
	out := &QueueStatus{}
	if err := countQueue(db, &out.Count); err != nil {
		return nil, err
	}
	if playerID != "" {
		var n int64
		if err := db.Model(&models.QueueTicket{}).Where("player_id = ?", playerID).Count(&n).Error; err != nil {
			return nil, eris.Wrap(err, "check queue")
		}
		out.Queued = n > 0
	}
	return out, nil
}

// Waiting lists tickets in arrival order.
func (s *QueueService) Waiting(ctx context.Context) ([]models.QueueTicket, error) {
	var tickets []models.QueueTicket
	if err := s.e.DB.WithContext(ctx).Order("id ASC").Find(&tickets).Error; err != nil {
		return nil, eris.Wrap(err, "list queue")
	}
	return tickets, nil
}

func countQueue(tx *gorm.DB, n *int64) error {
	if err := tx.Model(&models.QueueTicket{}).Count(n).Error; err != nil {
		return eris.Wrap(err, "count queue")
	}
	return nil
}

