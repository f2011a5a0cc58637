package driven

import "context"

// VectorIndex provides exact nearest-neighbour search by L2 distance.
//
// Vectors are appended and addressed by position. There is no delete or
// update: removal is done by building a new index from surviving vectors.
type VectorIndex interface {
	// Dimension returns the width every stored vector must have.
	Dimension() int

	// Len returns the number of stored vectors.
	Len() int

	// Insert appends vectors and returns their positions.
	// A vector of the wrong width fails with domain.ErrDimensionMismatch
	// and nothing is stored.
	Insert(ctx context.Context, vectors [][]float32) ([]int, error)

	// Search returns up to k hits sorted by ascending distance.
	// Ties are broken by position, earlier first. An empty index yields no hits.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Vector returns a copy of the vector stored at position.
	Vector(position int) ([]float32, error)
}

// VectorHit represents a nearest-neighbour search result.
type VectorHit struct {
	// Position is the index position of the matched vector.
	Position int

	// Distance is the squared Euclidean distance to the query.
	Distance float64
}

// VectorIndexFactory creates an empty index of the given dimension.
type VectorIndexFactory func(dimension int) (VectorIndex, error)
