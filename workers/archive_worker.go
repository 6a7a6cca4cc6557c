package workers

import (
	"context"
	"time"

	"inhouse-league/models"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MatchArchiver stores the settlement record of a finished match.
type MatchArchiver interface {
	PutMatch(ctx context.Context, m *models.Match) (string, error)
}

// ArchiveWorker copies every settlement that has not been archived yet to
// the archive. An override or revert clears archived_at, so the corrected
// settlement is uploaded again.
type ArchiveWorker struct {
	DB        *gorm.DB
	Archive   MatchArchiver
	BatchSize int
	Log       *logrus.Entry
}

func NewArchiveWorker(db *gorm.DB, archive MatchArchiver, log *logrus.Entry) *ArchiveWorker {
	return &ArchiveWorker{DB: db, Archive: archive, BatchSize: 50, Log: log}
}

// RunOnce archives one batch and returns how many matches it marked.
func (w *ArchiveWorker) RunOnce(ctx context.Context) (int, error) {
	var pending []models.Match
	err := w.DB.WithContext(ctx).
		Where("status = ? AND archived_at IS NULL", string(models.MatchStatusFinished)).
		Order("finished_at ASC").
		Limit(w.BatchSize).
		Find(&pending).Error
	if err != nil {
		return 0, eris.Wrap(err, "list unarchived matches")
	}

	archived := 0
	for i := range pending {
		m := &pending[i]
		key, err := w.Archive.PutMatch(ctx, m)
		if err != nil {
			// leave it unmarked, the next tick retries
			w.Log.WithError(err).WithField("match_id", m.ID).Warn("❌ archive upload failed")
			continue
		}

		// Only mark the settlement we uploaded; a concurrent override bumps
		// settlement_seq and must be archived on its own.
		res := w.DB.WithContext(ctx).Model(&models.Match{}).
			Where("id = ? AND settlement_seq = ? AND status = ?", m.ID, m.SettlementSeq, string(models.MatchStatusFinished)).
			UpdateColumn("archived_at", time.Now().UTC())
		if res.Error != nil {
			return archived, eris.Wrapf(res.Error, "mark match %s archived", m.ID)
		}
		if res.RowsAffected > 0 {
			archived++
			w.Log.WithFields(logrus.Fields{"match_id": m.ID, "key": key}).Info("📦 settlement archived")
		}
	}
	return archived, nil
}

// Poll runs RunOnce every interval until ctx is done.
func (w *ArchiveWorker) Poll(ctx context.Context, interval time.Duration) {
	w.Log.Info("Starting settlement archive polling...")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("Settlement archive polling stopped.")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.Log.WithError(err).Error("archive pass failed")
			}
		}
	}
}
