package vector

import (
	"fmt"
	"sort"
	"sync"
)

// SearchResult is one nearest-neighbor hit
type SearchResult struct {
	ID         string  `json:"id"`
	Similarity float32 `json:"similarity"`
}

// Index is an exact cosine nearest-neighbor index over requirement
// embeddings, one per jurisdiction. Reads are lock-free with respect to
// each other; ingestion is the only writer and is serialized upstream.
type Index struct {
	mu      sync.RWMutex
	dims    int
	vectors map[string][]float32
}

// NewIndex creates an index for embeddings of the given dimensionality
func NewIndex(dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dims)
	}
	return &Index{
		dims:    dims,
		vectors: make(map[string][]float32),
	}, nil
}

// Dimensions returns the index dimensionality
func (idx *Index) Dimensions() int {
	return idx.dims
}

// Len returns the number of indexed embeddings
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Insert adds or replaces the embedding for an id. Replacing is how
// re-ingestion of a changed requirement text updates its derived vector.
func (idx *Index) Insert(id string, embedding []float32) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	if len(embedding) != idx.dims {
		return fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(embedding), idx.dims)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	idx.mu.Lock()
	idx.vectors[id] = vec
	idx.mu.Unlock()
	return nil
}

// Query returns the k most similar ids by cosine similarity, descending.
// Ties are broken by ascending id. Querying an empty index returns an
// empty list, not an error.
func (idx *Index) Query(embedding []float32, k int) ([]SearchResult, error) {
	if len(embedding) != idx.dims {
		return nil, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(embedding), idx.dims)
	}
	if k <= 0 {
		return []SearchResult{}, nil
	}

	idx.mu.RLock()
	results := make([]SearchResult, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		sim, err := CosineSimilarity(embedding, vec)
		if err != nil {
			idx.mu.RUnlock()
			return nil, err
		}
		results = append(results, SearchResult{ID: id, Similarity: sim})
	}
	idx.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Vectors returns a copy of all stored embeddings, for persistence
func (idx *Index) Vectors() map[string][]float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string][]float32, len(idx.vectors))
	for id, vec := range idx.vectors {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		out[id] = cp
	}
	return out
}

// Get returns the stored embedding for an id
func (idx *Index) Get(id string) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	vec, ok := idx.vectors[id]
	if !ok {
		return nil, false
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	return cp, true
}
