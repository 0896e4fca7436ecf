package graph

import (
	"testing"

	"github.com/clinigraph/clinigraph/pkg/model"
)

func newTestGraph(t *testing.T, ids ...string) *Graph {
	t.Helper()

	g := New("USA")
	for _, id := range ids {
		err := g.AddNode(&model.Requirement{ID: id, Text: "requirement " + id, Severity: model.SeverityMedium})
		if err != nil {
			t.Fatalf("AddNode(%s) failed: %v", id, err)
		}
	}
	return g
}

func TestGraph_AddEdgeRequiresEndpoints(t *testing.T) {
	g := newTestGraph(t, "A")

	if err := g.AddEdge("A", "missing", model.RelationRelated, 1.0, 0.9); err == nil {
		t.Error("Expected error for unknown target")
	}
	if err := g.AddEdge("missing", "A", model.RelationRelated, 1.0, 0.9); err == nil {
		t.Error("Expected error for unknown source")
	}

	err := g.AddEdge("A", "missing", model.RelationRelated, 1.0, 0.9)
	if !model.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestGraph_DuplicateEdgeKeepsHighestConfidence(t *testing.T) {
	g := newTestGraph(t, "A", "B")

	g.AddEdge("A", "B", model.RelationRelated, 1.0, 0.6)
	g.AddEdge("A", "B", model.RelationRelated, 1.0, 0.9)
	g.AddEdge("A", "B", model.RelationRelated, 1.0, 0.7)

	edges := g.Edges()
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge after dedup, got %d", len(edges))
	}
	if edges[0].Confidence != 0.9 {
		t.Errorf("Expected highest confidence 0.9 kept, got %f", edges[0].Confidence)
	}

	if g.Stats().EdgeCount != 1 {
		t.Errorf("Expected edge count 1, got %d", g.Stats().EdgeCount)
	}
}

func TestGraph_MultipleRelationTypesSumWeights(t *testing.T) {
	g := newTestGraph(t, "A", "B")

	g.AddEdge("A", "B", model.RelationRelated, model.WeightRelated, 0.9)
	g.AddEdge("A", "B", model.RelationNearby, model.WeightNearby, 1.0)

	weights := g.OutWeights("A")
	if len(weights) != 1 {
		t.Fatalf("Expected 1 successor, got %d", len(weights))
	}
	want := model.WeightRelated + model.WeightNearby
	if weights["B"] != want {
		t.Errorf("Expected summed weight %f, got %f", want, weights["B"])
	}
}

func TestGraph_Stats(t *testing.T) {
	g := newTestGraph(t, "A", "B", "C")

	g.AddEdge("A", "B", model.RelationRelated, 1.0, 0.9)
	g.AddEdge("B", "A", model.RelationRelated, 1.0, 0.9)
	g.AddEdge("A", "C", model.RelationNearby, 0.3, 1.0)

	stats := g.Stats()
	if stats.NodeCount != 3 {
		t.Errorf("Expected 3 nodes, got %d", stats.NodeCount)
	}
	if stats.EdgeCount != 3 {
		t.Errorf("Expected 3 edges, got %d", stats.EdgeCount)
	}
	if stats.EdgesByRelation[model.RelationRelated] != 2 {
		t.Errorf("Expected 2 RELATED_TO edges, got %d", stats.EdgesByRelation[model.RelationRelated])
	}
	if stats.EdgesByRelation[model.RelationNearby] != 1 {
		t.Errorf("Expected 1 NEARBY edge, got %d", stats.EdgesByRelation[model.RelationNearby])
	}
}

func TestGraph_AddNodeReplaces(t *testing.T) {
	g := newTestGraph(t, "A")

	g.AddNode(&model.Requirement{ID: "A", Text: "updated text", Severity: model.SeverityHigh})

	node, ok := g.Node("A")
	if !ok {
		t.Fatal("Node A missing")
	}
	if node.Text != "updated text" {
		t.Errorf("Expected replaced text, got %q", node.Text)
	}
	if g.Stats().NodeCount != 1 {
		t.Errorf("Expected 1 node, got %d", g.Stats().NodeCount)
	}
}
