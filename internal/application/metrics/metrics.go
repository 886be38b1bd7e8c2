package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the application lifecycle engine.
type Metrics struct {
	submissions         *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	transitionConflicts prometheus.Counter
	transitionRejected  *prometheus.CounterVec
}

// New creates and registers the engine metrics.
func New() *Metrics {
	return &Metrics{
		submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipregistry_applications_submitted_total",
			Help: "Applications created, by kind.",
		}, []string{"kind"}),
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipregistry_transitions_total",
			Help: "Committed status transitions, by source and target status.",
		}, []string{"from", "to"}),
		transitionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ipregistry_transition_conflicts_total",
			Help: "Transitions surfaced as conflicts after exhausting retries.",
		}),
		transitionRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ipregistry_transitions_rejected_total",
			Help: "Transitions rejected before commit, by error code.",
		}, []string{"code"}),
	}
}

func (m *Metrics) ObserveSubmission(kind string) {
	m.submissions.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveConflict() {
	m.transitionConflicts.Inc()
}

func (m *Metrics) ObserveRejection(code string) {
	m.transitionRejected.WithLabelValues(code).Inc()
}
