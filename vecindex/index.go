package vecindex

import (
	"fmt"
	"sort"
)

// Index is an in-memory flat similarity index over one document's
// embeddings. Row i of the index corresponds to chunk i of the originating
// document; row order is part of the contract.
//
// The similarity metric is squared Euclidean (L2) distance: smaller is more
// similar. This is a fixed design decision, not configurable per query. The
// index applies no normalization; callers wanting cosine similarity must
// normalize vectors before insertion.
type Index struct {
	dimension int
	vectors   [][]float32
}

// Build creates an index from an ordered set of vectors.
// Fails with ErrEmptyInput on zero vectors and ErrDimensionMismatch when
// vector widths are inconsistent.
func Build(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyInput
	}

	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}

	rows := make([][]float32, len(vectors))
	for i, vector := range vectors {
		if len(vector) != dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d",
				ErrDimensionMismatch, i, len(vector), dimension)
		}
		row := make([]float32, dimension)
		copy(row, vector)
		rows[i] = row
	}

	return &Index{dimension: dimension, vectors: rows}, nil
}

// Dimension returns the fixed width of every vector in the index.
func (ix *Index) Dimension() int {
	return ix.dimension
}

// Count returns the number of vectors (rows) in the index.
func (ix *Index) Count() int {
	return len(ix.vectors)
}

// Hit is one nearest-neighbor search result.
type Hit struct {
	Row      int
	Distance float32
}

// Search returns the k nearest rows to the query vector, sorted ascending by
// squared L2 distance. k is capped at the index's vector count; ties are
// broken by ascending row for determinism.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			ErrDimensionMismatch, len(query), ix.dimension)
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	hits := make([]Hit, len(ix.vectors))
	for row, vector := range ix.vectors {
		var dist float32
		for i, q := range query {
			d := vector[i] - q
			dist += d * d
		}
		hits[row] = Hit{Row: row, Distance: dist}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		return hits[a].Row < hits[b].Row
	})

	return hits[:k], nil
}
