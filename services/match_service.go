package services

import (
	"context"
	"strings"

	"inhouse-league/models"
	"inhouse-league/notify"

	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MatchService creates matches and applies admin corrections to them.
type MatchService struct {
	e *Engine
}

// Create forms a match from exactly six players, consuming any queue
// tickets they hold.
func (s *MatchService) Create(ctx context.Context, playerIDs []string) (*models.Match, error) {
	e := s.e
	e.formationMu.Lock()
	defer e.formationMu.Unlock()

	var match *models.Match
	var dequeued int64
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := e.createMatch(tx, playerIDs)
		if err != nil {
			return err
		}
		res := tx.Where("player_id IN ?", m.Players()).Delete(&models.QueueTicket{})
		if res.Error != nil {
			return eris.Wrap(res.Error, "consume queue tickets")
		}
		dequeued = res.RowsAffected
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.MatchCreated("admin")
	e.publish(notify.EventMatchCreated, match.ID)
	if dequeued > 0 {
		e.publish(notify.EventQueueUpdate, "")
	}
	return match, nil
}

// createMatch validates the six players and inserts the match with its
// seats. Caller holds formationMu and the transaction.
func (e *Engine) createMatch(tx *gorm.DB, playerIDs []string) (*models.Match, error) {
	ids := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		ids = append(ids, strings.TrimSpace(id))
	}
	if len(ids) != models.MatchSize || len(pie.Unique(ids)) != models.MatchSize || pie.Contains(ids, "") {
		return nil, invalid("need_6_players", "a match needs exactly %d distinct players", models.MatchSize)
	}

	var players []models.Player
	if err := tx.Where("id IN ?", ids).Find(&players).Error; err != nil {
		return nil, eris.Wrap(err, "load players")
	}
	if len(players) != models.MatchSize {
		known := pie.Map(players, func(p models.Player) string { return p.ID })
		missing := pie.Filter(ids, func(id string) bool { return !pie.Contains(known, id) })
		return nil, notFound("players_not_found", "unknown players").with("players", missing)
	}

	busy, err := activeMembers(tx, ids)
	if err != nil {
		return nil, err
	}
	if len(busy) > 0 {
		return nil, conflict("already_in_active_match", "players already in an active match").with("players", busy)
	}

	maps := e.config.ActiveMapPool()
	if len(maps) == 0 {
		return nil, invalid("no_active_maps", "no map is active")
	}

	order := e.shuffle(ids)
	m := &models.Match{
		ID:            uuid.NewString(),
		MapName:       e.choose(maps),
		Status:        models.MatchStatusDraft,
		Team1:         order[:models.TeamSize],
		Team2:         order[models.TeamSize:],
		Picks:         map[string]string{},
		StreakHolders: []string{},
	}
	for _, p := range players {
		if p.Stats.CurrentStreak >= StreakBreakThreshold {
			m.StreakHolders = append(m.StreakHolders, p.ID)
		}
	}
	if err := tx.Create(m).Error; err != nil {
		return nil, eris.Wrap(err, "create match")
	}

	seats := make([]models.MatchSeat, 0, models.MatchSize)
	for side := 1; side <= 2; side++ {
		for i, id := range m.Team(side) {
			seats = append(seats, models.MatchSeat{ID: uuid.NewString(), MatchID: m.ID, PlayerID: id, Side: side, Seat: i})
		}
	}
	if err := tx.Create(&seats).Error; err != nil {
		return nil, eris.Wrap(err, "create match seats")
	}

	e.log.WithFields(logrus.Fields{"match_id": m.ID, "map": m.MapName}).Info("🎮 match created")
	return m, nil
}

// Get looks a match up by id or unique id prefix.
func (s *MatchService) Get(ctx context.Context, key string) (*models.Match, error) {
	id, err := s.e.resolveMatchKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return loadMatch(s.e.DB.WithContext(ctx), id)
}

// List returns matches newest first, optionally filtered by status.
func (s *MatchService) List(ctx context.Context, status string, limit int) ([]models.Match, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.e.DB.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Match
	if err := q.Find(&out).Error; err != nil {
		return nil, eris.Wrap(err, "list matches")
	}
	return out, nil
}

// Finalize settles an in-progress match directly. Finalizing a finished
// match is a no-op; applied reports whether a settlement happened.
func (s *MatchService) Finalize(ctx context.Context, key string, winner int) (m *models.Match, applied bool, err error) {
	if err := validSideOrErr(winner); err != nil {
		return nil, false, err
	}
	e := s.e
	matchID, err := e.resolveMatchKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	err = e.withMatch(ctx, matchID, func(tx *gorm.DB, cur *models.Match) error {
		m = cur
		switch cur.Status {
		case models.MatchStatusFinished:
			return nil
		case models.MatchStatusInProgress:
		default:
			return invalidState("match_not_in_progress", "match is %s", cur.Status)
		}
		applied = true
		return e.settle(tx, cur, winner)
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		e.metrics.Settled("finalize")
		e.publish(notify.EventMatchFinalized, m.ID)
	}
	return m, applied, nil
}

// Override replaces the outcome of a finished match: the old settlement is
// reverted and a new one applied in the same transaction.
func (s *MatchService) Override(ctx context.Context, key string, winner int) (*models.Match, error) {
	if err := validSideOrErr(winner); err != nil {
		return nil, err
	}
	e := s.e
	id, err := e.resolveMatchKey(ctx, key)
	if err != nil {
		return nil, err
	}
	var out *models.Match
	err = e.withMatch(ctx, id, func(tx *gorm.DB, m *models.Match) error {
		if m.Status != models.MatchStatusFinished {
			return invalidState("match_not_finished", "only finished matches can be overridden, match is %s", m.Status)
		}
		if err := e.revertSettlement(tx, m); err != nil {
			return err
		}
		m.Status = models.MatchStatusInProgress
		if err := e.settle(tx, m, winner); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Reverted("override")
	e.metrics.Settled("override")
	e.log.WithFields(logrus.Fields{"match_id": id, "winner": winner}).Warn("admin override applied")
	e.publish(notify.EventMatchOverridden, id)
	return out, nil
}

// Cancel moves a match to canceled, reverting its settlement first when it
// was finished. Canceling a canceled match is a no-op.
func (s *MatchService) Cancel(ctx context.Context, key string) (*models.Match, error) {
	e := s.e
	id, err := e.resolveMatchKey(ctx, key)
	if err != nil {
		return nil, err
	}
	var out *models.Match
	var changed, reverted bool
	err = e.withMatch(ctx, id, func(tx *gorm.DB, m *models.Match) error {
		out = m
		if m.Status == models.MatchStatusCanceled {
			return nil
		}
		if m.Status == models.MatchStatusFinished {
			if err := e.revertSettlement(tx, m); err != nil {
				return err
			}
			reverted = true
		}
		m.Status = models.MatchStatusCanceled
		m.WinnerSide = 0
		m.StartedAt = nil
		m.BetDeadline = nil
		m.FinishedAt = nil
		if err := tx.Save(m).Error; err != nil {
			return eris.Wrap(err, "save canceled match")
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		if reverted {
			e.metrics.Reverted("cancel")
		}
		e.metrics.Canceled()
		e.log.WithField("match_id", id).Warn("match canceled")
		e.publish(notify.EventMatchCanceled, id)
	}
	return out, nil
}

// RepairReport lists what a repair pass did.
type RepairReport struct {
	Fixed  []string          `json:"fixed"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Repair drives every draft or in-progress match to finished: drafts are
// auto-filled to completion, then the match is finalized for winner.
// Running it twice is harmless.
func (s *MatchService) Repair(ctx context.Context, winner int) (*RepairReport, error) {
	if err := validSideOrErr(winner); err != nil {
		return nil, err
	}
	var ids []string
	err := s.e.DB.WithContext(ctx).Model(&models.Match{}).
		Where("status IN ?", models.ActiveStatuses()).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, eris.Wrap(err, "list open matches")
	}

	report := &RepairReport{Fixed: []string{}}
	for _, id := range ids {
		if _, err := s.RepairMatch(ctx, id, winner); err != nil {
			if report.Failed == nil {
				report.Failed = map[string]string{}
			}
			report.Failed[id] = err.Error()
			s.e.log.WithError(err).WithField("match_id", id).Error("repair failed")
			continue
		}
		report.Fixed = append(report.Fixed, id)
	}
	return report, nil
}

// RepairMatch repairs one match. A finished match is left alone.
func (s *MatchService) RepairMatch(ctx context.Context, key string, winner int) (*models.Match, error) {
	if err := validSideOrErr(winner); err != nil {
		return nil, err
	}
	e := s.e
	id, err := e.resolveMatchKey(ctx, key)
	if err != nil {
		return nil, err
	}
	var out *models.Match
	var settled bool
	err = e.withMatch(ctx, id, func(tx *gorm.DB, m *models.Match) error {
		out = m
		if !m.IsActive() {
			if m.Status == models.MatchStatusFinished {
				return nil
			}
			return invalidState("match_canceled", "canceled matches cannot be repaired")
		}
		for round := 0; m.Status == models.MatchStatusDraft && round < models.DraftRounds; round++ {
			if _, err := e.autoFillRound(m); err != nil {
				return err
			}
		}
		if m.Status != models.MatchStatusInProgress {
			return invalidState("draft_incomplete", "draft could not be completed")
		}
		settled = true
		return e.settle(tx, m, winner)
	})
	if err != nil {
		return nil, err
	}
	if settled {
		e.metrics.Settled("repair")
		e.publish(notify.EventMatchFinalized, id)
	}
	return out, nil
}
