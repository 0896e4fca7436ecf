package vector

import (
	"errors"
	"testing"
)

func TestIndex_QueryEmpty(t *testing.T) {
	idx, err := NewIndex(3)
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	results, err := idx.Query([]float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty result on empty index, got %d", len(results))
	}
}

func TestIndex_QueryRanking(t *testing.T) {
	idx, _ := NewIndex(2)

	// a is identical to the query, b orthogonal, c opposite
	idx.Insert("a", []float32{1, 0})
	idx.Insert("b", []float32{0, 1})
	idx.Insert("c", []float32{-1, 0})

	results, err := idx.Query([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	if results[0].ID != "a" || results[1].ID != "b" || results[2].ID != "c" {
		t.Errorf("Expected order a, b, c, got %s, %s, %s", results[0].ID, results[1].ID, results[2].ID)
	}
	if results[0].Similarity < 0.999 {
		t.Errorf("Expected similarity ~1.0 for identical vector, got %f", results[0].Similarity)
	}
}

func TestIndex_TieBreakByID(t *testing.T) {
	idx, _ := NewIndex(2)

	// Identical vectors produce identical similarities
	idx.Insert("z", []float32{1, 0})
	idx.Insert("a", []float32{1, 0})
	idx.Insert("m", []float32{1, 0})

	results, err := idx.Query([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if results[0].ID != "a" || results[1].ID != "m" || results[2].ID != "z" {
		t.Errorf("Expected ascending id tie-break, got %s, %s, %s", results[0].ID, results[1].ID, results[2].ID)
	}
}

func TestIndex_KLimitsResults(t *testing.T) {
	idx, _ := NewIndex(2)
	idx.Insert("a", []float32{1, 0})
	idx.Insert("b", []float32{0, 1})

	results, err := idx.Query([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewIndex(3)

	if err := idx.Insert("a", []float32{1, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch on insert, got %v", err)
	}
	if _, err := idx.Query([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch on query, got %v", err)
	}
}

func TestIndex_InsertReplaces(t *testing.T) {
	idx, _ := NewIndex(2)
	idx.Insert("a", []float32{1, 0})
	idx.Insert("a", []float32{0, 1})

	if idx.Len() != 1 {
		t.Fatalf("Expected 1 vector after replace, got %d", idx.Len())
	}

	results, _ := idx.Query([]float32{0, 1}, 1)
	if results[0].Similarity < 0.999 {
		t.Errorf("Expected replaced vector to match new embedding, got %f", results[0].Similarity)
	}
}
