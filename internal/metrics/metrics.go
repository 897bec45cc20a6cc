// Package metrics exposes ping dispatch counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 持有 ping 相关计数器；nil 时所有方法为空操作。
type Metrics struct {
	outcomes      *prometheus.CounterVec
	recipients    prometheus.Counter
	emailFailures prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ichi",
			Subsystem: "ping",
			Name:      "outcomes_total",
			Help:      "Ping operations by operation and outcome reason.",
		}, []string{"op", "reason"}),
		recipients: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ichi",
			Subsystem: "ping",
			Name:      "recipients_total",
			Help:      "Recipients recorded by committed pings.",
		}),
		emailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ichi",
			Subsystem: "ping",
			Name:      "email_failures_total",
			Help:      "Committed pings whose email delivery failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.recipients, m.emailFailures)
	}
	return m
}

func (m *Metrics) Outcome(op, reason string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(op, reason).Inc()
}

func (m *Metrics) Recipients(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recipients.Add(float64(n))
}

func (m *Metrics) EmailFailed() {
	if m == nil {
		return
	}
	m.emailFailures.Inc()
}
