// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rotisserie/eris"
)

// StartStallSweep auto-fills drafts that sat unchanged for longer than
// timeout, checking every interval. A zero timeout leaves drafts to
// players and operators, and no scheduler is started.
func (s *DraftService) StartStallSweep(ctx context.Context, timeout, interval time.Duration) (gocron.Scheduler, error) {
	if timeout <= 0 {
		return nil, nil
	}
	if interval <= 0 {
		interval = time.Minute
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, eris.Wrap(err, "create scheduler")
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			advanced, err := s.AutoFillStalled(ctx, timeout)
			if err != nil {
				s.e.log.WithError(err).Error("[Scheduler] stalled draft sweep failed")
			}
			for _, id := range advanced {
				s.e.log.WithField("match_id", id).Info("⏱️ auto-filled stalled draft round")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, eris.Wrap(err, "schedule stalled draft sweep")
	}

	sched.Start()
	return sched, nil
}
