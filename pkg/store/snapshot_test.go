package store

import (
	"context"
	"testing"

	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/vector"
)

func buildTestJurisdiction(name string, dims int) (*graph.Graph, *vector.Index, error) {
	g := graph.New(name)
	reqs := []model.Requirement{
		{ID: "R1", Text: "Consent must be obtained.", Section: "4.8", Severity: model.SeverityCritical, RequirementType: "informed_consent"},
		{ID: "R2", Text: "Records must be retained.", Section: "5.5", Severity: model.SeverityHigh, RequirementType: "data_integrity"},
	}
	for i := range reqs {
		if err := g.AddNode(&reqs[i]); err != nil {
			return nil, nil, err
		}
	}
	if err := g.AddEdge("R1", "R2", model.RelationRelated, model.WeightRelated, 0.9); err != nil {
		return nil, nil, err
	}
	if err := g.AddEdge("R2", "R1", model.RelationRelated, model.WeightRelated, 0.9); err != nil {
		return nil, nil, err
	}

	idx, err := vector.NewIndex(dims)
	if err != nil {
		return nil, nil, err
	}
	if err := idx.Insert("R1", []float32{1, 0}); err != nil {
		return nil, nil, err
	}
	if err := idx.Insert("R2", []float32{0, 1}); err != nil {
		return nil, nil, err
	}
	return g, idx, nil
}

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewSnapshotStore failed: %v", err)
	}

	repo := NewRepository(2)
	j, err := repo.GetOrCreate("eu-ema")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	g, idx, err := buildTestJurisdiction("eu-ema", 2)
	if err != nil {
		t.Fatalf("build test data: %v", err)
	}
	j.Install(g, idx)

	if err := store.Save(context.Background(), j); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	g2, idx2, err := store.Load("eu-ema")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	stats := g2.Stats()
	if stats.NodeCount != 2 {
		t.Errorf("expected 2 nodes, got %d", stats.NodeCount)
	}
	if stats.EdgeCount != 2 {
		t.Errorf("expected 2 edges, got %d", stats.EdgeCount)
	}
	req, ok := g2.Node("R1")
	if !ok || req.Severity != model.SeverityCritical {
		t.Errorf("node R1 not restored correctly: %+v", req)
	}
	vec, ok := idx2.Get("R1")
	if !ok || vec[0] != 1 {
		t.Errorf("vector R1 not restored correctly: %v", vec)
	}
}

func TestSnapshotLoadMissing(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewSnapshotStore failed: %v", err)
	}
	if _, _, err := store.Load("nowhere"); !model.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestSnapshotLoadAll(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir, nil)
	if err != nil {
		t.Fatalf("NewSnapshotStore failed: %v", err)
	}

	src := NewRepository(2)
	for _, name := range []string{"eu-ema", "us-fda"} {
		j, err := src.GetOrCreate(name)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		g, idx, err := buildTestJurisdiction(name, 2)
		if err != nil {
			t.Fatalf("build test data: %v", err)
		}
		j.Install(g, idx)
		if err := store.Save(context.Background(), j); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	dst := NewRepository(2)
	if err := store.LoadAll(dst); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	names := dst.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 jurisdictions restored, got %d", len(names))
	}
	j, err := dst.Get("us-fda")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	g, _ := j.View()
	if g.Stats().NodeCount != 2 {
		t.Errorf("restored graph incomplete: %+v", g.Stats())
	}
}

func TestSnapshotLoadAllSkipsMismatchedDimensions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir, nil)
	if err != nil {
		t.Fatalf("NewSnapshotStore failed: %v", err)
	}

	src := NewRepository(2)
	j, err := src.GetOrCreate("eu-ema")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	g, idx, err := buildTestJurisdiction("eu-ema", 2)
	if err != nil {
		t.Fatalf("build test data: %v", err)
	}
	j.Install(g, idx)
	if err := store.Save(context.Background(), j); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := NewRepository(384)
	if err := store.LoadAll(dst); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(dst.List()) != 0 {
		t.Error("mismatched snapshot should be skipped")
	}
}
