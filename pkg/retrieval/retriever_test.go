package retrieval

import (
	"context"
	"testing"

	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/store"
	"github.com/clinigraph/clinigraph/pkg/vector"
)

// seedJurisdiction installs a small graph: A and B are close to the query
// axis, C hangs off A via a RELATED_TO edge, D is disconnected and far away.
func seedJurisdiction(t *testing.T, repo *store.Repository) {
	t.Helper()
	j, err := repo.GetOrCreate("eu-ema")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	g := graph.New("eu-ema")
	for _, id := range []string{"A", "B", "C", "D"} {
		if err := g.AddNode(&model.Requirement{ID: id, Text: id}); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
	}
	if err := g.AddEdge("A", "C", model.RelationRelated, model.WeightRelated, 0.9); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("C", "A", model.RelationRelated, model.WeightRelated, 0.9); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	idx, err := vector.NewIndex(2)
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	vectors := map[string][]float32{
		"A": {1, 0},
		"B": {0.95, 0.31225},
		"C": {-1, 0},
		"D": {0, 1},
	}
	for id, vec := range vectors {
		if err := idx.Insert(id, vec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	j.Install(g, idx)
}

func TestRetrieveUnknownJurisdiction(t *testing.T) {
	r := New(store.NewRepository(2), nil, nil)
	_, err := r.Retrieve(context.Background(), "atlantis", []float32{1, 0}, 5)
	if !model.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRetrieveEmptyJurisdiction(t *testing.T) {
	repo := store.NewRepository(2)
	if _, err := repo.GetOrCreate("eu-ema"); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	r := New(repo, nil, nil)
	results, err := r.Retrieve(context.Background(), "eu-ema", []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if results != nil {
		t.Errorf("expected empty result, got %+v", results)
	}
}

func TestRetrieveSurfacesGraphNeighbors(t *testing.T) {
	repo := store.NewRepository(2)
	seedJurisdiction(t, repo)
	r := New(repo, nil, nil, WithSeedCount(2))

	// query along the A/B axis: seeds are A and B, C is only reachable
	// through the graph, D is neither close nor connected
	results, err := r.Retrieve(context.Background(), "eu-ema", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}

	scores := make(map[string]float64, len(results))
	for _, res := range results {
		scores[res.Requirement.ID] = res.Score
	}
	if scores["C"] == 0 {
		t.Error("C should receive diffused score through its RELATED_TO edge")
	}
	if scores["A"] <= scores["C"] {
		t.Errorf("seed A should outrank neighbor C: A=%f C=%f", scores["A"], scores["C"])
	}
	if score, ok := scores["D"]; ok && score >= scores["C"] {
		t.Errorf("disconnected D should not outrank connected C: D=%f C=%f", score, scores["C"])
	}
}

func TestRetrieveOrderingAndTopK(t *testing.T) {
	repo := store.NewRepository(2)
	seedJurisdiction(t, repo)
	r := New(repo, nil, nil, WithSeedCount(2))

	results, err := r.Retrieve(context.Background(), "eu-ema", []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		if prev.Score < cur.Score {
			t.Errorf("results out of order: %f before %f", prev.Score, cur.Score)
		}
		if prev.Score == cur.Score && prev.Requirement.ID > cur.Requirement.ID {
			t.Errorf("tie not broken by id: %s before %s", prev.Requirement.ID, cur.Requirement.ID)
		}
	}
}

func TestRetrieveSkipsSeedsMissingFromGraph(t *testing.T) {
	repo := store.NewRepository(2)
	j, err := repo.GetOrCreate("eu-ema")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	g := graph.New("eu-ema")
	if err := g.AddNode(&model.Requirement{ID: "A", Text: "a"}); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	idx, err := vector.NewIndex(2)
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	// ORPHAN is indexed but absent from the graph
	if err := idx.Insert("A", []float32{1, 0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert("ORPHAN", []float32{0.99, 0.141}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	j.Install(g, idx)

	r := New(repo, nil, nil, WithSeedCount(2))
	results, err := r.Retrieve(context.Background(), "eu-ema", []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 1 || results[0].Requirement.ID != "A" {
		t.Errorf("expected only A, got %+v", results)
	}
}
