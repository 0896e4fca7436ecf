package retrieval

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/clinigraph/clinigraph/pkg/agents"
	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/metrics"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/store"
)

const (
	// DefaultSeedCount is how many vector-search hits seed the PageRank
	// personalization vector.
	DefaultSeedCount = 5
	// DefaultTopK bounds the result set when the caller does not say.
	DefaultTopK = 10
)

// Result is one retrieved requirement with its diffusion score.
type Result struct {
	Requirement model.Requirement `json:"requirement"`
	Score       float64           `json:"score"`
}

// Retriever finds the requirements most relevant to a query by seeding
// personalized PageRank with the query's nearest embedding neighbors. Vector
// search supplies recall, graph diffusion supplies context: requirements
// related to the seeds surface even when their own embeddings are far from
// the query.
type Retriever struct {
	repo     *store.Repository
	embedder agents.Embedder
	metrics  *metrics.Registry
	logger   logging.Logger

	seedCount int
	prOpts    graph.PageRankOptions
}

type Option func(*Retriever)

func WithSeedCount(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.seedCount = n
		}
	}
}

func WithPageRankOptions(opts graph.PageRankOptions) Option {
	return func(r *Retriever) { r.prOpts = opts }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(r *Retriever) { r.metrics = m }
}

func New(repo *store.Repository, embedder agents.Embedder, logger logging.Logger, opts ...Option) *Retriever {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Retriever{
		repo:      repo,
		embedder:  embedder,
		logger:    logger,
		seedCount: DefaultSeedCount,
		prOpts:    graph.DefaultPageRankOptions(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetrieveText embeds the query and retrieves against the jurisdiction.
func (r *Retriever) RetrieveText(ctx context.Context, jurisdiction, query string, topK int) ([]Result, error) {
	if r.embedder == nil {
		return nil, model.EmbeddingError("retrieve.text", errors.New("no embedder configured"))
	}
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return r.Retrieve(ctx, jurisdiction, vecs[0], topK)
}

// Retrieve runs seeded PageRank for one query embedding. An empty
// jurisdiction yields an empty result, an unknown one an error. Results are
// ordered by descending score with ties broken by requirement id.
func (r *Retriever) Retrieve(ctx context.Context, jurisdiction string, embedding []float32, topK int) ([]Result, error) {
	start := time.Now()
	if topK <= 0 {
		topK = DefaultTopK
	}

	j, err := r.repo.Get(jurisdiction)
	if err != nil {
		r.metrics.RecordRetrieval(jurisdiction, "error", time.Since(start), 0, true)
		return nil, err
	}
	g, idx := j.View()

	hits, err := idx.Query(embedding, r.seedCount)
	if err != nil {
		r.metrics.RecordRetrieval(jurisdiction, "error", time.Since(start), 0, true)
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	seeds := make([]string, 0, len(hits))
	for _, hit := range hits {
		if !g.HasNode(hit.ID) {
			// index and graph can briefly disagree during re-ingestion
			r.logger.Warn("seed missing from graph, skipping",
				logging.Jurisdiction(jurisdiction),
				logging.Regulation(hit.ID))
			continue
		}
		seeds = append(seeds, hit.ID)
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	pr, err := g.PersonalizedPageRank(seeds, r.prOpts)
	if err != nil {
		r.metrics.RecordRetrieval(jurisdiction, "error", time.Since(start), 0, true)
		return nil, err
	}
	if !pr.Converged {
		r.logger.Warn("pagerank hit iteration cap",
			logging.Jurisdiction(jurisdiction),
			logging.Int("iterations", pr.Iterations))
	}

	results := make([]Result, 0, len(pr.Scores))
	for id, score := range pr.Scores {
		if score == 0 {
			continue
		}
		req, ok := g.Node(id)
		if !ok {
			continue
		}
		results = append(results, Result{Requirement: *req, Score: score})
	}
	sort.Slice(results, func(i, k int) bool {
		if results[i].Score != results[k].Score {
			return results[i].Score > results[k].Score
		}
		return results[i].Requirement.ID < results[k].Requirement.ID
	})
	if len(results) > topK {
		results = results[:topK]
	}

	r.metrics.RecordRetrieval(jurisdiction, "ok", time.Since(start), pr.Iterations, pr.Converged)
	r.logger.Debug("retrieval complete",
		logging.Jurisdiction(jurisdiction),
		logging.Int("seeds", len(seeds)),
		logging.Int("results", len(results)),
		logging.Int("iterations", pr.Iterations),
		logging.Latency(time.Since(start)))
	return results, nil
}
