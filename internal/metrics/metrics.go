package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	ReconcileRuns      prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	BoundaryWakesFired prometheus.Counter
	FaceVerifications  *prometheus.CounterVec
	RateLimited        prometheus.Counter
}

// New registers the collectors with reg. A nil reg uses the default registerer,
// tests pass prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ReconcileRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_reconcile_runs_total",
			Help: "Election status reconciliation passes.",
		}),
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusvote_election_status_transitions_total",
			Help: "Election status changes persisted, by new status.",
		}, []string{"status"}),
		BoundaryWakesFired: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_boundary_wakes_fired_total",
			Help: "One-shot reconciliations fired at an election end boundary.",
		}),
		FaceVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campusvote_face_verifications_total",
			Help: "Face verification attempts by outcome.",
		}, []string{"outcome"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "campusvote_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}
}
