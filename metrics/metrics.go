// Package metrics exposes Prometheus counters for the match lifecycle.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is what the engine reports to. Noop satisfies it for tests and
// tools that do not serve /metrics.
type Recorder interface {
	MatchCreated(source string)
	DraftPick(auto bool)
	MatchStarted()
	BetPlaced()
	ReportMismatch()
	Settled(kind string)
	Reverted(reason string)
	Canceled()
	QueueSize(n int)
}

type Noop struct{}

func (Noop) MatchCreated(string) {}
func (Noop) DraftPick(bool)      {}
func (Noop) MatchStarted()       {}
func (Noop) BetPlaced()          {}
func (Noop) ReportMismatch()     {}
func (Noop) Settled(string)      {}
func (Noop) Reverted(string)     {}
func (Noop) Canceled()           {}
func (Noop) QueueSize(int)       {}

const namespace = "inhouse"

type Prometheus struct {
	matchesCreated  *prometheus.CounterVec
	draftPicks      *prometheus.CounterVec
	matchesStarted  prometheus.Counter
	betsPlaced      prometheus.Counter
	reportMismatch  prometheus.Counter
	settlements     *prometheus.CounterVec
	reverts         *prometheus.CounterVec
	matchesCanceled prometheus.Counter
	queueSize       prometheus.Gauge
}

// NewPrometheus registers the collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		matchesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_created_total",
			Help: "Matches created, by source (queue or admin).",
		}, []string{"source"}),
		draftPicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "draft_picks_total",
			Help: "Draft picks recorded, by mode (player or auto).",
		}, []string{"mode"}),
		matchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_started_total",
			Help: "Matches whose draft completed.",
		}),
		betsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bets_placed_total",
			Help: "Bets accepted.",
		}),
		reportMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "result_mismatches_total",
			Help: "Result reports where the two sides disagreed.",
		}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "settlements_total",
			Help: "Settlements applied, by kind (consensus, finalize, override, repair).",
		}, []string{"kind"}),
		reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "settlement_reverts_total",
			Help: "Settlements reverted, by reason (override or cancel).",
		}, []string{"reason"}),
		matchesCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_canceled_total",
			Help: "Matches canceled by an admin.",
		}),
		queueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_size",
			Help: "Players currently waiting in the queue.",
		}),
	}
	reg.MustRegister(p.matchesCreated, p.draftPicks, p.matchesStarted, p.betsPlaced,
		p.reportMismatch, p.settlements, p.reverts, p.matchesCanceled, p.queueSize)
	return p
}

func (p *Prometheus) MatchCreated(source string) { p.matchesCreated.WithLabelValues(source).Inc() }

func (p *Prometheus) DraftPick(auto bool) {
	mode := "player"
	if auto {
		mode = "auto"
	}
	p.draftPicks.WithLabelValues(mode).Inc()
}

func (p *Prometheus) MatchStarted()          { p.matchesStarted.Inc() }
func (p *Prometheus) BetPlaced()             { p.betsPlaced.Inc() }
func (p *Prometheus) ReportMismatch()        { p.reportMismatch.Inc() }
func (p *Prometheus) Settled(kind string)    { p.settlements.WithLabelValues(kind).Inc() }
func (p *Prometheus) Reverted(reason string) { p.reverts.WithLabelValues(reason).Inc() }
func (p *Prometheus) Canceled()              { p.matchesCanceled.Inc() }
func (p *Prometheus) QueueSize(n int)        { p.queueSize.Set(float64(n)) }
