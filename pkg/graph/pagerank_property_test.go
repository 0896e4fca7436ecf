package graph

import (
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/clinigraph/clinigraph/pkg/model"
)

// buildRandomGraph constructs a graph with n nodes and edges derived from
// the given adjacency seed values.
func buildRandomGraph(n int, edgePairs []int) *Graph {
	g := New("USA")
	for i := 0; i < n; i++ {
		g.AddNode(&model.Requirement{ID: fmt.Sprintf("REQ-%03d", i), Text: "req", Severity: model.SeverityMedium})
	}

	relations := []model.Relation{model.RelationRelated, model.RelationSimilar, model.RelationNearby}
	for i := 0; i+1 < len(edgePairs); i += 2 {
		src := fmt.Sprintf("REQ-%03d", edgePairs[i]%n)
		dst := fmt.Sprintf("REQ-%03d", edgePairs[i+1]%n)
		if src == dst {
			continue
		}
		rel := relations[(edgePairs[i]+edgePairs[i+1])%len(relations)]
		g.AddEdge(src, dst, rel, rel.Weight(), 0.8)
	}
	return g
}

// TestPageRankInvariants verifies properties that must hold for any graph
// topology and any seed set.
func TestPageRankInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// Property 1: scores always form a probability distribution
	properties.Property("PPR scores sum to 1", prop.ForAll(
		func(n int, edgePairs []int, seedIdx int) bool {
			g := buildRandomGraph(n, edgePairs)
			seed := fmt.Sprintf("REQ-%03d", seedIdx%n)

			result, err := g.PersonalizedPageRank([]string{seed}, DefaultPageRankOptions())
			if err != nil {
				return false
			}

			sum := 0.0
			for _, s := range result.Scores {
				sum += s
			}
			return math.Abs(sum-1.0) < 1e-6
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.IntRange(0, 100),
	))

	// Property 2: scores are never negative
	properties.Property("PPR scores are non-negative", prop.ForAll(
		func(n int, edgePairs []int, seedIdx int) bool {
			g := buildRandomGraph(n, edgePairs)
			seed := fmt.Sprintf("REQ-%03d", seedIdx%n)

			result, err := g.PersonalizedPageRank([]string{seed}, DefaultPageRankOptions())
			if err != nil {
				return false
			}

			for _, s := range result.Scores {
				if s < 0 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.IntRange(0, 100),
	))

	// Property 3: the seed always carries nonzero mass
	properties.Property("seed retains nonzero score", prop.ForAll(
		func(n int, edgePairs []int, seedIdx int) bool {
			g := buildRandomGraph(n, edgePairs)
			seed := fmt.Sprintf("REQ-%03d", seedIdx%n)

			result, err := g.PersonalizedPageRank([]string{seed}, DefaultPageRankOptions())
			if err != nil {
				return false
			}
			return result.Scores[seed] > 0
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
