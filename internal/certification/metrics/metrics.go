package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the certification engine.
type Metrics struct {
	DecisionsRecorded    *prometheus.CounterVec
	DecisionsRejected    *prometheus.CounterVec
	CascadedDecisions    prometheus.Counter
	ReassignmentsQueued  prometheus.Counter
	CertificationsSigned prometheus.Counter
	PhaseTransitions     *prometheus.CounterVec
	DecisionDuration     prometheus.Histogram
}

// New creates and registers all certification metrics.
func New() *Metrics {
	return &Metrics{
		DecisionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_decisions_recorded_total",
			Help: "Decisions recorded on certification items, by status.",
		}, []string{"status"}),
		DecisionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_decisions_rejected_total",
			Help: "Decision attempts rejected by lock or ownership checks, by reason key.",
		}, []string{"reason"}),
		CascadedDecisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_cascaded_decisions_total",
			Help: "Decisions applied to sibling items by account level cascades.",
		}),
		ReassignmentsQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_reassignments_queued_total",
			Help: "Bulk reassignment commands queued on certifications.",
		}),
		CertificationsSigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_certifications_signed_total",
			Help: "Certifications that completed electronic sign off.",
		}),
		PhaseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_phase_transitions_total",
			Help: "Certification phase transitions, by target phase.",
		}, []string{"phase"}),
		DecisionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_decision_duration_seconds",
			Help:    "Wall time spent applying one decision, cascades included.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
