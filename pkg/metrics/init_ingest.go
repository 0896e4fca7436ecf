package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIngestMetrics() {
	r.IngestionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinigraph_ingestions_total",
			Help: "Total number of regulation ingestions",
		},
		[]string{"jurisdiction", "status"},
	)

	r.IngestionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinigraph_ingestion_duration_seconds",
			Help:    "Graph build duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 5.0, 30.0, 120.0, 600.0},
		},
		[]string{"jurisdiction"},
	)

	r.RequirementsIngested = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinigraph_requirements_ingested_total",
			Help: "Total number of requirement nodes ingested",
		},
		[]string{"jurisdiction"},
	)

	r.TripletsRejected = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinigraph_triplets_rejected_total",
			Help: "Total number of relationship triplets rejected during ingestion",
		},
		[]string{"jurisdiction"},
	)

	r.GraphNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clinigraph_graph_nodes",
			Help: "Current number of requirement nodes per jurisdiction",
		},
		[]string{"jurisdiction"},
	)

	r.GraphEdges = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clinigraph_graph_edges",
			Help: "Current number of edges per jurisdiction and relation type",
		},
		[]string{"jurisdiction", "relation"},
	)
}
