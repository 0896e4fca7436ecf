package builder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clinigraph/clinigraph/pkg/agents"
	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/metrics"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/store"
	"github.com/clinigraph/clinigraph/pkg/vector"
)

// DefaultSimilarityThreshold is the cosine similarity a pair of requirement
// embeddings must exceed before a SIMILAR_TO edge is added.
const DefaultSimilarityThreshold = 0.75

// Persister saves a jurisdiction after a successful build.
type Persister interface {
	Save(ctx context.Context, j *store.Jurisdiction) error
}

// RejectedTriplet records why one extracted relationship was not turned
// into edges.
type RejectedTriplet struct {
	Triplet model.Triplet `json:"triplet"`
	Reason  string        `json:"reason"`
}

// BuildStats summarizes one ingestion.
type BuildStats struct {
	Jurisdiction     string            `json:"jurisdiction"`
	Requirements     int               `json:"requirements"`
	RejectedTriplets []RejectedTriplet `json:"rejected_triplets,omitempty"`
	Graph            graph.Statistics  `json:"graph"`
	ArchiveKey       string            `json:"archive_key,omitempty"`
	Duration         time.Duration     `json:"duration_ns"`
}

// Builder assembles per-jurisdiction knowledge graphs and vector indexes.
// Builds are staged off to the side and only installed once everything has
// succeeded, so readers never observe a partially built jurisdiction and a
// failed build leaves the previous graph untouched.
type Builder struct {
	repo      *store.Repository
	embedder  agents.Embedder
	extractor *agents.Extractor
	archive   store.Archive
	persister Persister
	metrics   *metrics.Registry
	logger    logging.Logger

	similarityThreshold float64
}

type Option func(*Builder)

// WithExtractor enables document ingestion via the extraction agents.
func WithExtractor(e *agents.Extractor) Option {
	return func(b *Builder) { b.extractor = e }
}

// WithArchive stores raw ingested documents for later audit.
func WithArchive(a store.Archive) Option {
	return func(b *Builder) { b.archive = a }
}

// WithPersister saves the jurisdiction after each successful build.
func WithPersister(p Persister) Option {
	return func(b *Builder) { b.persister = p }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(b *Builder) { b.metrics = m }
}

func WithSimilarityThreshold(threshold float64) Option {
	return func(b *Builder) { b.similarityThreshold = threshold }
}

func New(repo *store.Repository, embedder agents.Embedder, logger logging.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b := &Builder{
		repo:                repo,
		embedder:            embedder,
		logger:              logger,
		similarityThreshold: DefaultSimilarityThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IngestDocument extracts requirements and relationships from a raw
// regulation document, then builds the graph. The document is archived
// first when an archive is configured.
func (b *Builder) IngestDocument(ctx context.Context, jurisdiction, document string) (*BuildStats, error) {
	if b.extractor == nil {
		return nil, model.ValidationError("builder.ingest", "extractor", jurisdiction, errors.New("no extractor configured"))
	}
	if strings.TrimSpace(document) == "" {
		return nil, model.ValidationError("builder.ingest", "document", jurisdiction, errors.New("document is empty"))
	}

	var archiveKey string
	if b.archive != nil {
		key, err := b.archive.Put(ctx, jurisdiction, strings.NewReader(document))
		if err != nil {
			// archival is best effort, the build itself must not depend on it
			b.logger.Warn("document archival failed",
				logging.Jurisdiction(jurisdiction),
				logging.Error(err))
		} else {
			archiveKey = key
		}
	}

	requirements, err := b.extractor.ExtractRequirements(ctx, document)
	if err != nil {
		return nil, err
	}
	if len(requirements) == 0 {
		return nil, model.ValidationError("builder.ingest", "requirements", jurisdiction, errors.New("no requirements extracted"))
	}

	triplets, err := b.extractor.ExtractRelationships(ctx, requirements)
	if err != nil {
		return nil, err
	}

	stats, err := b.Build(ctx, jurisdiction, requirements, triplets)
	if err != nil {
		return nil, err
	}
	stats.ArchiveKey = archiveKey
	return stats, nil
}

// Build embeds the requirements and installs them, their relationship edges,
// similarity edges, and document-adjacency edges into the jurisdiction.
// Requirements must arrive in document order; adjacency edges are derived
// from that order. Re-ingesting an existing requirement id replaces the node
// and its embedding. An embedding failure aborts the whole build.
func (b *Builder) Build(ctx context.Context, jurisdiction string, requirements []model.Requirement, triplets []model.Triplet) (*BuildStats, error) {
	start := time.Now()

	if jurisdiction == "" {
		return nil, model.ValidationError("builder.build", "jurisdiction", "", errors.New("jurisdiction is empty"))
	}
	if len(requirements) == 0 {
		return nil, model.ValidationError("builder.build", "requirements", jurisdiction, errors.New("no requirements"))
	}

	j, err := b.repo.GetOrCreate(jurisdiction)
	if err != nil {
		return nil, err
	}
	unlock := j.LockIngest()
	defer unlock()

	// embed everything before touching any state: a failure here must leave
	// the jurisdiction exactly as it was
	texts := make([]string, len(requirements))
	for i, req := range requirements {
		texts[i] = req.Text
	}
	embeddings, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		b.recordIngestion(jurisdiction, "error", start, 0, 0)
		return nil, err
	}

	staged, stagedIdx, err := b.stage(j)
	if err != nil {
		return nil, err
	}

	for i := range requirements {
		req := requirements[i]
		req.Jurisdiction = jurisdiction
		if err := staged.AddNode(&req); err != nil {
			return nil, err
		}
		if err := stagedIdx.Insert(req.ID, embeddings[i]); err != nil {
			return nil, err
		}
	}

	rejected := b.addRelationEdges(staged, triplets)
	b.addAdjacencyEdges(staged, requirements)
	if err := b.addSimilarityEdges(staged, stagedIdx, requirements); err != nil {
		return nil, err
	}

	j.Install(staged, stagedIdx)

	if b.persister != nil {
		if err := b.persister.Save(ctx, j); err != nil {
			// the in-memory install already succeeded, persistence lag is
			// survivable and retried on the next build
			b.logger.Warn("jurisdiction persistence failed",
				logging.Jurisdiction(jurisdiction),
				logging.Error(err))
		}
	}

	stats := &BuildStats{
		Jurisdiction:     jurisdiction,
		Requirements:     len(requirements),
		RejectedTriplets: rejected,
		Graph:            staged.Stats(),
		Duration:         time.Since(start),
	}

	edgesByRelation := make(map[string]int, len(stats.Graph.EdgesByRelation))
	for relation, count := range stats.Graph.EdgesByRelation {
		edgesByRelation[string(relation)] = count
	}
	b.recordIngestion(jurisdiction, "ok", start, len(requirements), len(rejected))
	b.metrics.UpdateGraphSize(jurisdiction, stats.Graph.NodeCount, edgesByRelation)
	b.logger.Info("graph build complete",
		logging.Jurisdiction(jurisdiction),
		logging.Int("requirements", len(requirements)),
		logging.Int("nodes", stats.Graph.NodeCount),
		logging.Int("edges", stats.Graph.EdgeCount),
		logging.Int("rejected_triplets", len(rejected)),
		logging.Latency(stats.Duration))
	return stats, nil
}

// stage deep-copies the jurisdiction's current graph and index so the build
// can proceed without holding the read view hostage.
func (b *Builder) stage(j *store.Jurisdiction) (*graph.Graph, *vector.Index, error) {
	cur, curIdx := j.View()

	staged := graph.New(j.Name())
	for _, id := range cur.NodeIDs() {
		if req, ok := cur.Node(id); ok {
			copied := *req
			if err := staged.AddNode(&copied); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, e := range cur.Edges() {
		if err := staged.AddEdge(e.Source, e.Target, e.Relation, e.Weight, e.Confidence); err != nil {
			return nil, nil, err
		}
	}

	stagedIdx, err := vector.NewIndex(curIdx.Dimensions())
	if err != nil {
		return nil, nil, err
	}
	for id, vec := range curIdx.Vectors() {
		if err := stagedIdx.Insert(id, vec); err != nil {
			return nil, nil, err
		}
	}
	return staged, stagedIdx, nil
}

// addRelationEdges turns extracted triplets into bidirectional RELATED_TO
// edges. Triplets referencing requirements absent from the graph are
// rejected individually, they never fail the build.
func (b *Builder) addRelationEdges(g *graph.Graph, triplets []model.Triplet) []RejectedTriplet {
	var rejected []RejectedTriplet
	for _, t := range triplets {
		var reason string
		switch {
		case !g.HasNode(t.Subject):
			reason = "unknown subject " + t.Subject
		case !g.HasNode(t.Object):
			reason = "unknown object " + t.Object
		case t.Subject == t.Object:
			reason = "self-referential"
		}
		if reason != "" {
			b.logger.Warn("rejecting relationship triplet",
				logging.String("subject", t.Subject),
				logging.String("object", t.Object),
				logging.String("reason", reason))
			rejected = append(rejected, RejectedTriplet{Triplet: t, Reason: reason})
			continue
		}
		// relationships diffuse both ways during PageRank
		g.AddEdge(t.Subject, t.Object, model.RelationRelated, model.WeightRelated, t.Confidence)
		g.AddEdge(t.Object, t.Subject, model.RelationRelated, model.WeightRelated, t.Confidence)
	}
	return rejected
}

// addAdjacencyEdges connects requirements that sit next to each other in
// the source document.
func (b *Builder) addAdjacencyEdges(g *graph.Graph, requirements []model.Requirement) {
	for i := 0; i+1 < len(requirements); i++ {
		a, z := requirements[i].ID, requirements[i+1].ID
		if a == z {
			continue
		}
		g.AddEdge(a, z, model.RelationNearby, model.WeightNearby, 1.0)
		g.AddEdge(z, a, model.RelationNearby, model.WeightNearby, 1.0)
	}
}

// addSimilarityEdges connects each new requirement to every node whose
// embedding is strictly closer than the similarity threshold.
func (b *Builder) addSimilarityEdges(g *graph.Graph, idx *vector.Index, requirements []model.Requirement) error {
	for _, req := range requirements {
		vec, ok := idx.Get(req.ID)
		if !ok {
			continue
		}
		results, err := idx.Query(vec, idx.Len())
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.ID == req.ID {
				continue
			}
			if float64(r.Similarity) <= b.similarityThreshold {
				break // results are sorted by similarity, nothing below qualifies
			}
			sim := float64(r.Similarity)
			g.AddEdge(req.ID, r.ID, model.RelationSimilar, model.WeightSimilar, sim)
			g.AddEdge(r.ID, req.ID, model.RelationSimilar, model.WeightSimilar, sim)
		}
	}
	return nil
}

func (b *Builder) recordIngestion(jurisdiction, status string, start time.Time, requirements, rejected int) {
	b.metrics.RecordIngestion(jurisdiction, status, time.Since(start), requirements, rejected)
}
