package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/clinigraph/clinigraph/pkg/model"
)

// Edge is a directed, typed, weighted relationship between two requirement
// nodes. RELATED_TO and SIMILAR_TO are semantically symmetric; the builder
// inserts both directions.
type Edge struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Relation   model.Relation `json:"relation"`
	Weight     float64        `json:"weight"`
	Confidence float64        `json:"confidence"`
}

// Statistics summarizes a jurisdiction graph
type Statistics struct {
	NodeCount       int                    `json:"node_count"`
	EdgeCount       int                    `json:"edge_count"`
	EdgesByRelation map[model.Relation]int `json:"edges_by_relation"`
}

// Graph is the directed multigraph of regulatory requirements for a single
// jurisdiction. Jurisdictions are fully isolated: no edge ever crosses
// between graphs. Reads are concurrent; ingestion is the only writer and is
// serialized by the owning store.
type Graph struct {
	jurisdiction string

	mu    sync.RWMutex
	nodes map[string]*model.Requirement
	// source -> target -> relation -> edge. At most one edge per
	// (source, target, relation); duplicates keep the highest confidence.
	out       map[string]map[string]map[model.Relation]*Edge
	edgeCount map[model.Relation]int
}

// New creates an empty graph for a jurisdiction
func New(jurisdiction string) *Graph {
	return &Graph{
		jurisdiction: jurisdiction,
		nodes:        make(map[string]*model.Requirement),
		out:          make(map[string]map[string]map[model.Relation]*Edge),
		edgeCount:    make(map[model.Relation]int),
	}
}

// Jurisdiction returns the jurisdiction this graph belongs to
func (g *Graph) Jurisdiction() string {
	return g.jurisdiction
}

// AddNode inserts a requirement node. Re-adding an existing id replaces the
// node (re-ingestion path); its edges are retained.
func (g *Graph) AddNode(req *model.Requirement) error {
	if req == nil || req.ID == "" {
		return model.ValidationError("AddNode", "requirement", "", fmt.Errorf("missing id"))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cp := *req
	cp.Jurisdiction = g.jurisdiction
	g.nodes[req.ID] = &cp
	return nil
}

// HasNode reports whether a node exists
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Node returns the requirement for an id
func (g *Graph) Node(id string) (*model.Requirement, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	req, ok := g.nodes[id]
	return req, ok
}

// NodeIDs returns all node ids in ascending order
func (g *Graph) NodeIDs() []string {
	g.mu.RLock()
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	g.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// AddEdge inserts a directed edge. Both endpoints must already exist in
// this graph. A duplicate (source, target, relation) is deduplicated,
// keeping the highest-confidence instance.
func (g *Graph) AddEdge(source, target string, relation model.Relation, weight, confidence float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[source]; !ok {
		return model.ValidationError("AddEdge", "node", source, fmt.Errorf("unknown source"))
	}
	if _, ok := g.nodes[target]; !ok {
		return model.ValidationError("AddEdge", "node", target, fmt.Errorf("unknown target"))
	}

	targets, ok := g.out[source]
	if !ok {
		targets = make(map[string]map[model.Relation]*Edge)
		g.out[source] = targets
	}
	relations, ok := targets[target]
	if !ok {
		relations = make(map[model.Relation]*Edge)
		targets[target] = relations
	}

	if existing, ok := relations[relation]; ok {
		if confidence > existing.Confidence {
			existing.Confidence = confidence
			existing.Weight = weight
		}
		return nil
	}

	relations[relation] = &Edge{
		Source:     source,
		Target:     target,
		Relation:   relation,
		Weight:     weight,
		Confidence: confidence,
	}
	g.edgeCount[relation]++
	return nil
}

// OutWeights returns the effective weight to each successor of a node.
// When multiple edge types connect the same pair, their weights sum.
func (g *Graph) OutWeights(id string) map[string]float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	targets, ok := g.out[id]
	if !ok {
		return nil
	}
	weights := make(map[string]float64, len(targets))
	for target, relations := range targets {
		sum := 0.0
		for _, e := range relations {
			sum += e.Weight
		}
		weights[target] = sum
	}
	return weights
}

// Edges returns all edges sorted by (source, target, relation), for
// persistence and the graph data endpoint
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	edges := make([]Edge, 0)
	for _, targets := range g.out {
		for _, relations := range targets {
			for _, e := range relations {
				edges = append(edges, *e)
			}
		}
	}
	g.mu.RUnlock()

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		return edges[i].Relation < edges[j].Relation
	})
	return edges
}

// Stats returns graph statistics
func (g *Graph) Stats() Statistics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	byRelation := make(map[model.Relation]int, len(g.edgeCount))
	total := 0
	for rel, n := range g.edgeCount {
		byRelation[rel] = n
		total += n
	}
	return Statistics{
		NodeCount:       len(g.nodes),
		EdgeCount:       total,
		EdgesByRelation: byRelation,
	}
}
