package store

import (
	"sort"
	"sync"

	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/vector"
)

// Jurisdiction bundles the knowledge graph and vector index for one
// regulatory regime. Readers see a consistent graph+index pair: the two are
// only ever swapped together under the write lock, and ingestion is
// serialized per jurisdiction so concurrent builds cannot interleave.
type Jurisdiction struct {
	name string

	mu    sync.RWMutex
	graph *graph.Graph
	index *vector.Index

	// ingestMu serializes graph builds for this jurisdiction. It is held
	// across the whole build, not just the final swap.
	ingestMu sync.Mutex
}

func newJurisdiction(name string, dims int) (*Jurisdiction, error) {
	idx, err := vector.NewIndex(dims)
	if err != nil {
		return nil, err
	}
	return &Jurisdiction{
		name:  name,
		graph: graph.New(name),
		index: idx,
	}, nil
}

func (j *Jurisdiction) Name() string { return j.name }

// View returns the current graph and index. Both are safe for concurrent
// reads; callers must not mutate them.
func (j *Jurisdiction) View() (*graph.Graph, *vector.Index) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.graph, j.index
}

// Install atomically replaces the graph and index. Used by the builder after
// a fully successful build, and by persistence when restoring a snapshot.
func (j *Jurisdiction) Install(g *graph.Graph, idx *vector.Index) {
	j.mu.Lock()
	j.graph = g
	j.index = idx
	j.mu.Unlock()
}

// LockIngest takes the per-jurisdiction build lock. The returned function
// releases it.
func (j *Jurisdiction) LockIngest() func() {
	j.ingestMu.Lock()
	return j.ingestMu.Unlock
}

// Repository is the in-memory registry of jurisdictions. Jurisdictions are
// created lazily and never removed.
type Repository struct {
	mu            sync.RWMutex
	jurisdictions map[string]*Jurisdiction
	dimensions    int
}

// NewRepository creates a repository whose vector indexes all use the given
// embedding dimensionality.
func NewRepository(dimensions int) *Repository {
	return &Repository{
		jurisdictions: make(map[string]*Jurisdiction),
		dimensions:    dimensions,
	}
}

func (r *Repository) Dimensions() int { return r.dimensions }

// Get returns the jurisdiction or a not-found error. Read paths (retrieval,
// compliance) use Get so a typo'd jurisdiction fails loudly instead of
// silently scoring against an empty graph.
func (r *Repository) Get(name string) (*Jurisdiction, error) {
	r.mu.RLock()
	j, ok := r.jurisdictions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, model.JurisdictionNotFound(name)
	}
	return j, nil
}

// GetOrCreate returns the jurisdiction, creating it when absent. Ingestion
// uses GetOrCreate since a first build legitimately targets a new regime.
func (r *Repository) GetOrCreate(name string) (*Jurisdiction, error) {
	r.mu.RLock()
	j, ok := r.jurisdictions[name]
	r.mu.RUnlock()
	if ok {
		return j, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jurisdictions[name]; ok {
		return j, nil
	}
	j, err := newJurisdiction(name, r.dimensions)
	if err != nil {
		return nil, err
	}
	r.jurisdictions[name] = j
	return j, nil
}

// List returns all jurisdiction names in sorted order.
func (r *Repository) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jurisdictions))
	for name := range r.jurisdictions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
