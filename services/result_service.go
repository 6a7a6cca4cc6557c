package services

import (
	"context"

	"inhouse-league/models"
	"inhouse-league/notify"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ResultService collects the winner claims of both sides. A match settles
// only when the two claims agree.
type ResultService struct {
	e *Engine
}

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportMismatch ReportStatus = "mismatch"
	ReportFinished ReportStatus = "finished"
)

type ReportOutcome struct {
	Status          ReportStatus         `json:"status"`
	MatchID         string               `json:"match_id"`
	OutstandingSide int                  `json:"outstanding_side,omitempty"`
	Reports         models.ResultReports `json:"reports"`
	Match           *models.Match        `json:"match,omitempty"`
}

// Report stores playerID's claim for their side. On a mismatch the claim is
// still stored and the outcome is returned together with a conflict error.
func (s *ResultService) Report(ctx context.Context, matchID, playerID string, claimedWinner int) (*ReportOutcome, error) {
	if err := validSideOrErr(claimedWinner); err != nil {
		return nil, err
	}
	e := s.e
	var out *ReportOutcome
	var settled bool
	err := e.withMatch(ctx, matchID, func(tx *gorm.DB, m *models.Match) error {
		if m.Status != models.MatchStatusInProgress && m.Status != models.MatchStatusFinished {
			return invalidState("match_not_in_progress", "match is %s", m.Status)
		}
		side, _ := m.SeatOf(playerID)
		if side == 0 {
			return forbidden("not_a_participant", "player %s did not play this match", playerID)
		}

		out = &ReportOutcome{MatchID: m.ID, Match: m}
		if m.Status == models.MatchStatusFinished && claimedWinner != m.WinnerSide {
			// the settled outcome stands; a late contradicting claim is not stored
			out.Status = ReportFinished
			out.Reports = m.Reports
			return nil
		}

		m.Reports.Set(side, models.ResultReport{Winner: claimedWinner, ReporterID: playerID, ReportedAt: e.clock()})

		mine, theirs := m.Reports.Get(side), m.Reports.Get(models.OtherSide(side))
		switch {
		case theirs == nil:
			out.Status = ReportPending
			out.OutstandingSide = models.OtherSide(side)
			if m.Status == models.MatchStatusFinished {
				out.Status = ReportFinished
				out.OutstandingSide = 0
			}
		case theirs.Winner != mine.Winner:
			out.Status = ReportMismatch
		default:
			out.Status = ReportFinished
			if m.Status == models.MatchStatusInProgress {
				settled = true
				out.Reports = m.Reports
				return e.settle(tx, m, claimedWinner)
			}
		}
		out.Reports = m.Reports
		if err := tx.Save(m).Error; err != nil {
			return eris.Wrap(err, "save report")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(notify.EventReportUpdate, out.MatchID)
	switch {
	case settled:
		e.metrics.Settled("consensus")
		e.publish(notify.EventMatchFinalized, out.MatchID)
	case out.Status == ReportMismatch:
		e.metrics.ReportMismatch()
		e.log.WithFields(logrus.Fields{"match_id": out.MatchID, "reporter": playerID}).Warn("result reports disagree")
		return out, conflict("result_mismatch", "the two teams reported different winners").with("reports", out.Reports)
	}
	return out, nil
}
