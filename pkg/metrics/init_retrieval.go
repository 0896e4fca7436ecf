package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRetrievalMetrics() {
	r.RetrievalsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinigraph_retrievals_total",
			Help: "Total number of hybrid retrievals",
		},
		[]string{"jurisdiction", "status"},
	)

	r.RetrievalDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinigraph_retrieval_duration_seconds",
			Help:    "Hybrid retrieval duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"jurisdiction"},
	)

	r.PageRankIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinigraph_pagerank_iterations",
			Help:    "PageRank iterations until convergence or cap",
			Buckets: []float64{5, 10, 20, 40, 60, 80, 100},
		},
	)

	r.PageRankNonConverged = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "clinigraph_pagerank_nonconverged_total",
			Help: "Total number of PageRank runs that hit the iteration cap",
		},
	)
}
