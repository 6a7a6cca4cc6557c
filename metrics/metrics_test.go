package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.MatchCreated("queue")
	p.MatchCreated("queue")
	p.MatchCreated("admin")
	p.DraftPick(true)
	p.DraftPick(false)
	p.DraftPick(false)
	p.Settled("override")
	p.Reverted("cancel")
	p.QueueSize(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.matchesCreated.WithLabelValues("queue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.matchesCreated.WithLabelValues("admin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.draftPicks.WithLabelValues("auto")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.draftPicks.WithLabelValues("player")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.settlements.WithLabelValues("override")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.reverts.WithLabelValues("cancel")))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.queueSize))

	p.QueueSize(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(p.queueSize))
}

func TestNewPrometheusRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg)
	assert.Panics(t, func() { NewPrometheus(reg) })
}
