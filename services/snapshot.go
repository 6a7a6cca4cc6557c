package services

import (
	"fmt"

	"inhouse-league/models"

	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// settle computes and applies the settlement of m for winner and finishes
// the match. It must run inside the caller's transaction.
func (e *Engine) settle(tx *gorm.DB, m *models.Match, winner int) error {
	winners := m.Team(winner)
	losers := m.Team(models.OtherSide(winner))

	var players []models.Player
	if err := tx.Where("id IN ?", m.Players()).Find(&players).Error; err != nil {
		return eris.Wrap(err, "load participants")
	}
	streaks := make(map[string]int, len(players))
	for _, p := range players {
		streaks[p.ID] = p.Stats.CurrentStreak
	}
	for _, id := range m.Players() {
		if _, ok := streaks[id]; !ok {
			return notFound("player_not_found", "participant %s not found", id)
		}
	}

	var bets []models.Bet
	if err := tx.Where("match_id = ?", m.ID).Order("placed_at ASC").Find(&bets).Error; err != nil {
		return eris.Wrap(err, "load bets")
	}

	delta := ComputeSettlement(SettlementInput{
		WinnerSide: winner,
		Winners:    winners,
		Losers:     losers,
		Streaks:    streaks,
		Picks:      m.Picks,
		Bets:       bets,
	}, RulesFrom(e.config))

	now := e.clock()
	delta.SettledAt = now
	if err := applyDelta(tx, &delta); err != nil {
		return err
	}

	m.Status = models.MatchStatusFinished
	m.WinnerSide = winner
	m.FinishedAt = &now
	m.Snapshot = &delta
	m.SettlementSeq++
	m.ArchivedAt = nil
	if err := tx.Save(m).Error; err != nil {
		return eris.Wrap(err, "save settled match")
	}

	e.log.WithFields(logrus.Fields{
		"match_id": m.ID,
		"winner":   winner,
		"bettors":  len(bets),
	}).Info("🏁 match settled")
	return nil
}

// applyDelta adds every recorded change. Counters are incremented in SQL so
// two settlements touching the same bettor cannot lose an update.
func applyDelta(tx *gorm.DB, d *models.SettlementDelta) error {
	for _, id := range pie.Sort(pie.Keys(d.Players)) {
		pd := d.Players[id]
		updates := map[string]any{
			"score":          gorm.Expr("score + ?", pd.Score),
			"wins":           gorm.Expr("wins + ?", pd.Wins),
			"losses":         gorm.Expr("losses + ?", pd.Losses),
			"played":         gorm.Expr("played + ?", pd.Played),
			"streaks_broken": gorm.Expr("streaks_broken + ?", pd.StreaksBroken),
			"correct_bets":   gorm.Expr("correct_bets + ?", pd.CorrectBets),
		}
		if pd.Participant {
			updates["current_streak"] = pd.StreakAfter
			updates["max_streak"] = gorm.Expr("CASE WHEN max_streak < ? THEN ? ELSE max_streak END", pd.StreakAfter, pd.StreakAfter)
		}
		res := tx.Model(&models.Player{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return eris.Wrapf(res.Error, "apply settlement to player %s", id)
		}
		if res.RowsAffected == 0 {
			return notFound("player_not_found", "player %s not found", id)
		}
	}

	for _, cd := range d.Characters {
		stat := models.CharacterStat{}
		err := tx.Where("player_id = ? AND character_id = ?", cd.PlayerID, cd.CharacterID).
			Attrs(models.CharacterStat{ID: uuid.NewString(), PlayerID: cd.PlayerID, CharacterID: cd.CharacterID}).
			FirstOrCreate(&stat).Error
		if err != nil {
			return eris.Wrapf(err, "ensure character stat %s/%s", cd.PlayerID, cd.CharacterID)
		}
		err = tx.Model(&models.CharacterStat{}).Where("id = ?", stat.ID).Updates(map[string]any{
			"played":         gorm.Expr("played + ?", cd.Played),
			"wins":           gorm.Expr("wins + ?", cd.Wins),
			"streaks_broken": gorm.Expr("streaks_broken + ?", cd.StreaksBroken),
		}).Error
		if err != nil {
			return eris.Wrapf(err, "apply settlement to character stat %s", stat.ID)
		}
	}
	return nil
}

// revertSettlement undoes the snapshot of m and reopens its outcome. Teams,
// picks and reports are kept. max_streak is not restored: the snapshot does
// not record its prior value. The caller saves m.
func (e *Engine) revertSettlement(tx *gorm.DB, m *models.Match) error {
	d := m.Snapshot
	if d == nil {
		return nil
	}

	for _, id := range pie.Sort(pie.Keys(d.Players)) {
		pd := d.Players[id]
		updates := map[string]any{
			"score":          gorm.Expr("score - ?", pd.Score),
			"wins":           gorm.Expr("wins - ?", pd.Wins),
			"losses":         gorm.Expr("losses - ?", pd.Losses),
			"played":         gorm.Expr("played - ?", pd.Played),
			"streaks_broken": gorm.Expr("streaks_broken - ?", pd.StreaksBroken),
			"correct_bets":   gorm.Expr("correct_bets - ?", pd.CorrectBets),
		}
		if pd.Participant {
			updates["current_streak"] = pd.StreakBefore
		}
		if err := tx.Model(&models.Player{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return eris.Wrapf(err, "revert settlement of player %s", id)
		}
	}

	for _, cd := range d.Characters {
		err := tx.Model(&models.CharacterStat{}).
			Where("player_id = ? AND character_id = ?", cd.PlayerID, cd.CharacterID).
			Updates(map[string]any{
				"played":         floorSub("played", cd.Played),
				"wins":           floorSub("wins", cd.Wins),
				"streaks_broken": floorSub("streaks_broken", cd.StreaksBroken),
			}).Error
		if err != nil {
			return eris.Wrapf(err, "revert character stat %s/%s", cd.PlayerID, cd.CharacterID)
		}
	}

	m.Snapshot = nil
	m.WinnerSide = 0
	m.FinishedAt = nil

	e.log.WithField("match_id", m.ID).Info("↩️ settlement reverted")
	return nil
}

// floorSub subtracts n from column without going below zero.
func floorSub(column string, n int) any {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %s > ? THEN %s - ? ELSE 0 END", column, column), n, n)
}
