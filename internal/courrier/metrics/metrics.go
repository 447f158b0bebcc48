package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the courrier workflow.
// Tracks creations, stage transitions, denied operations and critical path
// durations.
type Metrics struct {
	CourrierCreated    *prometheus.CounterVec
	StageTransitions   *prometheus.CounterVec
	PermissionDenied   *prometheus.CounterVec
	TransitionDuration prometheus.Histogram
	VerifyDuration     prometheus.Histogram
}

// New creates a new Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		CourrierCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registre_courriers_created_total",
			Help: "Total number of courriers registered, by type",
		}, []string{"type"}),
		StageTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registre_stage_transitions_total",
			Help: "Total number of workflow stage transitions, by action",
		}, []string{"action"}),
		PermissionDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registre_permission_denied_total",
			Help: "Total number of operations refused by the access engine, by action",
		}, []string{"action"}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "registre_transition_duration_seconds",
			Help:    "Duration of workflow transition operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "registre_verify_duration_seconds",
			Help:    "Duration of public verification lookups (QR scan path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records a successful courrier registration.
func (m *Metrics) IncrementCreated(courrierType string) {
	m.CourrierCreated.WithLabelValues(courrierType).Inc()
}

// IncrementTransition records a successful workflow transition.
func (m *Metrics) IncrementTransition(action string) {
	m.StageTransitions.WithLabelValues(action).Inc()
}

// IncrementDenied records an operation refused by the access engine.
func (m *Metrics) IncrementDenied(action string) {
	m.PermissionDenied.WithLabelValues(action).Inc()
}

// ObserveTransition records the duration of a workflow transition.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(start time.Time) {
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}

// ObserveVerify records the duration of a public verification lookup.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}
