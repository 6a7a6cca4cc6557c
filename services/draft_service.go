package services

import (
	"context"
	"strings"
	"time"

	"inhouse-league/models"
	"inhouse-league/notify"

	"github.com/elliotchance/pie/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DraftService runs the three-round pick phase. In round r the r-th player
// of each team picks; the round advances once both have picked.
type DraftService struct {
	e *Engine
}

type DraftState struct {
	MatchID    string             `json:"match_id"`
	DraftRound int                `json:"draft_round"`
	Status     models.MatchStatus `json:"status"`
	Match      *models.Match      `json:"match"`
}

func draftState(m *models.Match) *DraftState {
	return &DraftState{MatchID: m.ID, DraftRound: m.DraftRound, Status: m.Status, Match: m}
}

// Pick records playerID's character for the current round.
func (s *DraftService) Pick(ctx context.Context, matchID, playerID, characterID string) (*DraftState, error) {
	e := s.e
	characterID = strings.TrimSpace(characterID)
	var state *DraftState
	var started bool
	err := e.withMatch(ctx, matchID, func(tx *gorm.DB, m *models.Match) error {
		if m.Status != models.MatchStatusDraft {
			return invalidState("not_in_draft", "match is %s", m.Status)
		}
		side, seat := m.SeatOf(playerID)
		if side == 0 {
			return forbidden("user_not_in_match", "player %s is not in this match", playerID)
		}
		if seat != m.DraftRound {
			return forbidden("not_your_turn", "round %d belongs to another player", m.DraftRound+1)
		}
		if !pie.Contains(e.config.ActiveCharacterPool(), characterID) {
			return invalid("invalid_champion", "%q is not an active character", characterID)
		}
		for _, mate := range m.Team(side) {
			if mate != playerID && m.Pick(mate) == characterID {
				return conflict("champion_already_used_in_team", "%s is already picked by a teammate", characterID)
			}
		}

		m.SetPick(playerID, characterID)
		started = e.advanceDraft(m)
		if err := tx.Save(m).Error; err != nil {
			return eris.Wrap(err, "save pick")
		}
		state = draftState(m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.DraftPick(false)
	e.afterDraftChange(state, started)
	return state, nil
}

// AutoFill picks a random character for every seat of the current round
// that has not picked yet.
func (s *DraftService) AutoFill(ctx context.Context, matchID string) (*DraftState, error) {
	e := s.e
	var state *DraftState
	var started bool
	var filled int
	err := e.withMatch(ctx, matchID, func(tx *gorm.DB, m *models.Match) error {
		if m.Status != models.MatchStatusDraft {
			return invalidState("not_in_draft", "match is %s", m.Status)
		}
		var err error
		if filled, err = e.autoFillRound(m); err != nil {
			return err
		}
		started = m.Status == models.MatchStatusInProgress
		if err := tx.Save(m).Error; err != nil {
			return eris.Wrap(err, "save auto-fill")
		}
		state = draftState(m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := 0; i < filled; i++ {
		e.metrics.DraftPick(true)
	}
	e.afterDraftChange(state, started)
	return state, nil
}

// autoFillRound fills the current round in memory and advances the draft.
// It returns how many seats it filled.
func (e *Engine) autoFillRound(m *models.Match) (int, error) {
	pool := e.config.ActiveCharacterPool()
	if len(pool) == 0 {
		return 0, invalid("no_active_characters", "no character is active")
	}
	round := m.DraftRound
	filled := 0
	for side := 1; side <= 2; side++ {
		team := m.Team(side)
		if round >= len(team) {
			continue
		}
		seat := team[round]
		if m.Pick(seat) != "" {
			continue
		}
		used := pie.Map(team, m.Pick)
		choices := pie.Filter(pool, func(c string) bool { return !pie.Contains(used, c) })
		if len(choices) == 0 {
			choices = pool
		}
		m.SetPick(seat, e.choose(choices))
		filled++
	}
	e.advanceDraft(m)
	return filled, nil
}

// advanceDraft moves past every completed round and starts the match after
// the last one. It reports whether the match started.
func (e *Engine) advanceDraft(m *models.Match) bool {
	for m.DraftRound < models.DraftRounds {
		r := m.DraftRound
		if r >= len(m.Team1) || r >= len(m.Team2) {
			break
		}
		if m.Pick(m.Team1[r]) == "" || m.Pick(m.Team2[r]) == "" {
			break
		}
		m.DraftRound++
	}
	if m.DraftRound < models.DraftRounds || m.Status != models.MatchStatusDraft {
		return false
	}
	now := e.clock()
	deadline := now.Add(e.betWindow)
	m.Status = models.MatchStatusInProgress
	m.StartedAt = &now
	m.BetDeadline = &deadline
	return true
}

func (e *Engine) afterDraftChange(state *DraftState, started bool) {
	e.publish(notify.EventDraftUpdate, state.MatchID)
	if started {
		e.metrics.MatchStarted()
		e.log.WithFields(logrus.Fields{
			"match_id":     state.MatchID,
			"bet_deadline": state.Match.BetDeadline,
		}).Info("⚔️ draft complete, match started")
		e.publish(notify.EventMatchStarted, state.MatchID)
	}
}

// AutoFillStalled auto-fills one round of every draft that has not changed
// for longer than timeout. It returns the matches it advanced.
func (s *DraftService) AutoFillStalled(ctx context.Context, timeout time.Duration) ([]string, error) {
	if timeout <= 0 {
		return nil, nil
	}
	cutoff := s.e.clock().Add(-timeout)
	var ids []string
	err := s.e.DB.WithContext(ctx).Model(&models.Match{}).
		Where("status = ? AND updated_at < ?", string(models.MatchStatusDraft), cutoff).
		Order("updated_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, eris.Wrap(err, "list stalled drafts")
	}

	var advanced []string
	for _, id := range ids {
		if _, err := s.AutoFill(ctx, id); err != nil {
			// a concurrent pick may have completed the draft meanwhile
			if KindOf(err) == KindInvalidState {
				continue
			}
			return advanced, err
		}
		advanced = append(advanced, id)
	}
	return advanced, nil
}
