package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/metrics"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/store"
)

// fakeEmbedder returns canned unit vectors keyed by text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, model.EmbeddingError("embed.batch", f.err)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			return nil, model.EmbeddingError("embed.batch", errors.New("no canned vector for "+text))
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }

func hasEdge(t *testing.T, g *graph.Graph, source, target string, relation model.Relation) bool {
	t.Helper()
	for _, e := range g.Edges() {
		if e.Source == source && e.Target == target && e.Relation == relation {
			return true
		}
	}
	return false
}

func TestBuildAddsRelationEdgesBothDirections(t *testing.T) {
	repo := store.NewRepository(2)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"consent": {1, 0},
		"records": {0, 1},
	}}
	b := New(repo, embedder, nil)

	reqs := []model.Requirement{
		{ID: "R1", Text: "consent", Severity: model.SeverityCritical},
		{ID: "R2", Text: "records", Severity: model.SeverityHigh},
	}
	triplets := []model.Triplet{{Subject: "R1", Object: "R2", Confidence: 0.9}}

	stats, err := b.Build(context.Background(), "eu-ema", reqs, triplets)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stats.Requirements != 2 {
		t.Errorf("expected 2 requirements, got %d", stats.Requirements)
	}

	j, err := repo.Get("eu-ema")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	g, idx := j.View()
	if !hasEdge(t, g, "R1", "R2", model.RelationRelated) || !hasEdge(t, g, "R2", "R1", model.RelationRelated) {
		t.Error("expected RELATED_TO edges in both directions")
	}
	if idx.Len() != 2 {
		t.Errorf("expected 2 vectors indexed, got %d", idx.Len())
	}
}

func TestBuildRejectsUnknownTriplets(t *testing.T) {
	repo := store.NewRepository(2)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"consent": {1, 0}}}
	b := New(repo, embedder, nil)

	reqs := []model.Requirement{{ID: "R1", Text: "consent"}}
	triplets := []model.Triplet{
		{Subject: "R1", Object: "GHOST", Confidence: 0.9},
		{Subject: "R1", Object: "R1", Confidence: 0.9},
	}

	stats, err := b.Build(context.Background(), "eu-ema", reqs, triplets)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(stats.RejectedTriplets) != 2 {
		t.Fatalf("expected 2 rejected triplets, got %d", len(stats.RejectedTriplets))
	}
	if stats.Graph.EdgeCount != 0 {
		t.Errorf("expected no edges, got %d", stats.Graph.EdgeCount)
	}
}

func TestBuildAddsAdjacencyEdges(t *testing.T) {
	repo := store.NewRepository(2)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0}, "b": {0, 1}, "c": {-1, 0},
	}}
	b := New(repo, embedder, nil)

	reqs := []model.Requirement{
		{ID: "R1", Text: "a"},
		{ID: "R2", Text: "b"},
		{ID: "R3", Text: "c"},
	}
	if _, err := b.Build(context.Background(), "eu-ema", reqs, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	j, _ := repo.Get("eu-ema")
	g, _ := j.View()
	if !hasEdge(t, g, "R1", "R2", model.RelationNearby) || !hasEdge(t, g, "R2", "R1", model.RelationNearby) {
		t.Error("expected NEARBY edges between R1 and R2")
	}
	if !hasEdge(t, g, "R2", "R3", model.RelationNearby) {
		t.Error("expected NEARBY edge between R2 and R3")
	}
	if hasEdge(t, g, "R1", "R3", model.RelationNearby) {
		t.Error("R1 and R3 are not adjacent")
	}
}

func TestBuildAddsSimilarityEdgesAboveThreshold(t *testing.T) {
	repo := store.NewRepository(2)
	// cos(R1,R2) = 0.6*1 + 0.8*0 normalized: use vectors with known cosine.
	// {1,0} vs {0.9, 0.436}: cosine ~0.9. {1,0} vs {0.5, 0.866}: cosine 0.5.
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"base":    {1, 0},
		"close":   {0.9, 0.43589},
		"distant": {0.5, 0.86603},
	}}
	b := New(repo, embedder, nil)

	reqs := []model.Requirement{
		{ID: "BASE", Text: "base"},
		{ID: "CLOSE", Text: "close"},
		{ID: "FAR", Text: "distant"},
	}
	if _, err := b.Build(context.Background(), "eu-ema", reqs, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	j, _ := repo.Get("eu-ema")
	g, _ := j.View()
	if !hasEdge(t, g, "BASE", "CLOSE", model.RelationSimilar) || !hasEdge(t, g, "CLOSE", "BASE", model.RelationSimilar) {
		t.Error("expected SIMILAR_TO edges for cosine ~0.9")
	}
	if hasEdge(t, g, "BASE", "FAR", model.RelationSimilar) {
		t.Error("cosine 0.5 must not produce a SIMILAR_TO edge")
	}
}

func TestBuildAbortsAtomicallyOnEmbeddingFailure(t *testing.T) {
	repo := store.NewRepository(2)
	good := &fakeEmbedder{vectors: map[string][]float32{"consent": {1, 0}}}
	b := New(repo, good, nil)
	if _, err := b.Build(context.Background(), "eu-ema", []model.Requirement{{ID: "R1", Text: "consent"}}, nil); err != nil {
		t.Fatalf("initial Build failed: %v", err)
	}

	bad := New(repo, &fakeEmbedder{err: errors.New("provider down")}, nil)
	_, err := bad.Build(context.Background(), "eu-ema", []model.Requirement{{ID: "R2", Text: "records"}}, nil)
	if !errors.Is(err, model.ErrEmbedding) {
		t.Fatalf("expected embedding error, got %v", err)
	}

	j, _ := repo.Get("eu-ema")
	g, idx := j.View()
	if g.Stats().NodeCount != 1 || idx.Len() != 1 {
		t.Errorf("failed build must leave jurisdiction untouched: nodes=%d vectors=%d",
			g.Stats().NodeCount, idx.Len())
	}
	if !g.HasNode("R1") || g.HasNode("R2") {
		t.Error("original node should survive, new node should not appear")
	}
}

func TestBuildReplacesExistingRequirement(t *testing.T) {
	repo := store.NewRepository(2)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"old text": {1, 0},
		"new text": {0, 1},
	}}
	b := New(repo, embedder, nil)

	if _, err := b.Build(context.Background(), "eu-ema", []model.Requirement{{ID: "R1", Text: "old text"}}, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := b.Build(context.Background(), "eu-ema", []model.Requirement{{ID: "R1", Text: "new text", Severity: model.SeverityCritical}}, nil); err != nil {
		t.Fatalf("re-ingest failed: %v", err)
	}

	j, _ := repo.Get("eu-ema")
	g, idx := j.View()
	req, ok := g.Node("R1")
	if !ok || req.Text != "new text" || req.Severity != model.SeverityCritical {
		t.Errorf("node not replaced: %+v", req)
	}
	vec, _ := idx.Get("R1")
	if vec[1] != 1 {
		t.Errorf("embedding not replaced: %v", vec)
	}
}

func TestBuildValidatesInput(t *testing.T) {
	repo := store.NewRepository(2)
	b := New(repo, &fakeEmbedder{}, nil)

	if _, err := b.Build(context.Background(), "", []model.Requirement{{ID: "R1", Text: "x"}}, nil); !model.IsValidation(err) {
		t.Errorf("expected validation error for empty jurisdiction, got %v", err)
	}
	if _, err := b.Build(context.Background(), "eu-ema", nil, nil); !model.IsValidation(err) {
		t.Errorf("expected validation error for empty requirements, got %v", err)
	}
}

func TestBuildRecordsGraphSizeMetrics(t *testing.T) {
	repo := store.NewRepository(2)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"consent": {1, 0},
		"records": {0, 1},
	}}
	registry := metrics.NewRegistry()
	b := New(repo, embedder, nil, WithMetrics(registry))

	reqs := []model.Requirement{
		{ID: "R1", Text: "consent", Severity: model.SeverityCritical},
		{ID: "R2", Text: "records", Severity: model.SeverityHigh},
	}
	triplets := []model.Triplet{{Subject: "R1", Object: "R2", Confidence: 0.9}}

	if _, err := b.Build(context.Background(), "eu-ema", reqs, triplets); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := testutil.ToFloat64(registry.GraphNodes.WithLabelValues("eu-ema")); got != 2 {
		t.Errorf("expected node gauge 2, got %v", got)
	}
	if got := testutil.ToFloat64(registry.GraphEdges.WithLabelValues("eu-ema", string(model.RelationRelated))); got != 2 {
		t.Errorf("expected 2 RELATED_TO edges recorded, got %v", got)
	}
	if got := testutil.ToFloat64(registry.GraphEdges.WithLabelValues("eu-ema", string(model.RelationNearby))); got != 2 {
		t.Errorf("expected 2 NEARBY edges recorded, got %v", got)
	}
}
