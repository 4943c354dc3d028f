package stackauth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric labels
const (
	LabelStrategy = "strategy"
	LabelOutcome  = "outcome"
)

// Metrics counts the outcomes the Middleware sees per strategy
type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.  A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stackauth",
				Name:      "authentications_total",
				Help:      "Authentication outcomes by strategy.",
			},
			[]string{LabelStrategy, LabelOutcome},
		),
	}
}

// Outcomes exposes the counter, mostly for tests
func (m *Metrics) Outcomes() *prometheus.CounterVec {
	return m.outcomes
}

func (m *Metrics) observe(strategy string, kind OutcomeKind) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(strategy, kind.String()).Inc()
}
