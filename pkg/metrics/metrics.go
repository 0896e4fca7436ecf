package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the engine. A nil *Registry is valid and
// records nothing, so components can run unmetered in tests.
type Registry struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	IngestionsTotal      *prometheus.CounterVec
	IngestionDuration    *prometheus.HistogramVec
	RequirementsIngested *prometheus.CounterVec
	TripletsRejected     *prometheus.CounterVec
	GraphNodes           *prometheus.GaugeVec
	GraphEdges           *prometheus.GaugeVec

	// Retrieval metrics
	RetrievalsTotal      *prometheus.CounterVec
	RetrievalDuration    *prometheus.HistogramVec
	PageRankIterations   prometheus.Histogram
	PageRankNonConverged prometheus.Counter

	// Compliance metrics
	ComplianceChecksTotal *prometheus.CounterVec
	ChunksProcessed       *prometheus.CounterVec
	ViolationsFound       *prometheus.CounterVec
	JudgeLatency          prometheus.Histogram
	CollaboratorFailures  *prometheus.CounterVec
}

// NewRegistry creates a registry with all metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}
	r.initHTTPMetrics()
	r.initIngestMetrics()
	r.initRetrievalMetrics()
	r.initComplianceMetrics()
	return r
}

// Handler returns an HTTP handler exposing the metrics
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordIngestion records a graph build
func (r *Registry) RecordIngestion(jurisdiction, status string, duration time.Duration, requirements, rejectedTriplets int) {
	if r == nil {
		return
	}
	r.IngestionsTotal.WithLabelValues(jurisdiction, status).Inc()
	r.IngestionDuration.WithLabelValues(jurisdiction).Observe(duration.Seconds())
	r.RequirementsIngested.WithLabelValues(jurisdiction).Add(float64(requirements))
	r.TripletsRejected.WithLabelValues(jurisdiction).Add(float64(rejectedTriplets))
}

// UpdateGraphSize records the current size of a jurisdiction graph
func (r *Registry) UpdateGraphSize(jurisdiction string, nodes int, edgesByRelation map[string]int) {
	if r == nil {
		return
	}
	r.GraphNodes.WithLabelValues(jurisdiction).Set(float64(nodes))
	for relation, count := range edgesByRelation {
		r.GraphEdges.WithLabelValues(jurisdiction, relation).Set(float64(count))
	}
}

// RecordRetrieval records a hybrid retrieval with its PPR behavior
func (r *Registry) RecordRetrieval(jurisdiction, status string, duration time.Duration, iterations int, converged bool) {
	if r == nil {
		return
	}
	r.RetrievalsTotal.WithLabelValues(jurisdiction, status).Inc()
	r.RetrievalDuration.WithLabelValues(jurisdiction).Observe(duration.Seconds())
	r.PageRankIterations.Observe(float64(iterations))
	if !converged {
		r.PageRankNonConverged.Inc()
	}
}

// RecordComplianceCheck records a whole-document compliance check
func (r *Registry) RecordComplianceCheck(jurisdiction, status string) {
	if r == nil {
		return
	}
	r.ComplianceChecksTotal.WithLabelValues(jurisdiction, status).Inc()
}

// RecordChunk records one chunk's terminal state
func (r *Registry) RecordChunk(state string) {
	if r == nil {
		return
	}
	r.ChunksProcessed.WithLabelValues(state).Inc()
}

// RecordViolation records one retained violation
func (r *Registry) RecordViolation(severity string) {
	if r == nil {
		return
	}
	r.ViolationsFound.WithLabelValues(severity).Inc()
}

// RecordJudgeCall records a compliance-judge call
func (r *Registry) RecordJudgeCall(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.JudgeLatency.Observe(duration.Seconds())
	if err != nil {
		r.CollaboratorFailures.WithLabelValues("judge").Inc()
	}
}

// RecordCollaboratorFailure records a failed external collaborator call
func (r *Registry) RecordCollaboratorFailure(collaborator string) {
	if r == nil {
		return
	}
	r.CollaboratorFailures.WithLabelValues(collaborator).Inc()
}
