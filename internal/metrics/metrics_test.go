package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Outcome("dispatch", "ok")
	m.Outcome("dispatch", "ok")
	m.Outcome("dispatch", "send_limit")
	m.Recipients(3)
	m.Recipients(0)
	m.EmailFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("dispatch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("dispatch", "send_limit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.recipients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emailFailures))

	n, err := testutil.GatherAndCount(reg, "ichi_ping_outcomes_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Outcome("preview", "ok")
		m.Recipients(1)
		m.EmailFailed()
	})
}
