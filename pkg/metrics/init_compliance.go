package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initComplianceMetrics() {
	r.ComplianceChecksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinigraph_compliance_checks_total",
			Help: "Total number of protocol compliance checks",
		},
		[]string{"jurisdiction", "status"},
	)

	r.ChunksProcessed = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinigraph_chunks_processed_total",
			Help: "Total number of protocol chunks by terminal state",
		},
		[]string{"state"},
	)

	r.ViolationsFound = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinigraph_violations_total",
			Help: "Total number of retained violations by severity",
		},
		[]string{"severity"},
	)

	r.JudgeLatency = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinigraph_judge_latency_seconds",
			Help:    "Compliance judge call latency in seconds",
			Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
	)

	r.CollaboratorFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinigraph_collaborator_failures_total",
			Help: "Total number of failed external collaborator calls",
		},
		[]string{"collaborator"},
	)
}
