// Package flat provides an exact nearest-neighbour index over a flat array
// of float32 vectors using squared Euclidean distance.
//
// The index is append-only. Positions are assigned in insertion order and
// never reused; removing vectors means building a new index from the
// survivors.
package flat

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores vectors contiguously, row-major.
type Index struct {
	mu   sync.RWMutex
	dim  int
	data []float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: index dimension must be positive, got %d", domain.ErrInvalidConfig, dimension)
	}
	return &Index{dim: dimension}, nil
}

// Factory adapts New to driven.VectorIndexFactory.
func Factory(dimension int) (driven.VectorIndex, error) {
	return New(dimension)
}

// Dimension returns the width of every stored vector.
func (x *Index) Dimension() int {
	return x.dim
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.data) / x.dim
}

// Insert appends vectors and returns their positions. All vectors are
// checked before any is stored.
func (x *Index) Insert(_ context.Context, vectors [][]float32) ([]int, error) {
	for i, v := range vectors {
		if len(v) != x.dim {
			return nil, fmt.Errorf("%w: vector %d has %d values, index has %d",
				domain.ErrDimensionMismatch, i, len(v), x.dim)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	first := len(x.data) / x.dim
	x.data = slices.Grow(x.data, len(vectors)*x.dim)
	positions := make([]int, len(vectors))
	for i, v := range vectors {
		x.data = append(x.data, v...)
		positions[i] = first + i
	}
	return positions, nil
}

// Search returns up to k nearest vectors by ascending squared L2 distance.
// Equal distances keep the earlier position first.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d",
			domain.ErrDimensionMismatch, len(query), x.dim)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	n := len(x.data) / x.dim
	if n == 0 || k <= 0 {
		return []driven.VectorHit{}, nil
	}

	hits := make([]driven.VectorHit, n)
	for pos := 0; pos < n; pos++ {
		row := x.data[pos*x.dim : (pos+1)*x.dim]
		hits[pos] = driven.VectorHit{Position: pos, Distance: SquaredL2(query, row)}
	}

	slices.SortFunc(hits, func(a, b driven.VectorHit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})

	if k < n {
		hits = hits[:k]
	}
	return hits, nil
}

// Vector returns a copy of the vector at position.
func (x *Index) Vector(position int) ([]float32, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := len(x.data) / x.dim
	if position < 0 || position >= n {
		return nil, fmt.Errorf("%w: position %d outside index of %d vectors", domain.ErrNotFound, position, n)
	}
	return slices.Clone(x.data[position*x.dim : (position+1)*x.dim]), nil
}

// Vectors returns copies of all vectors in position order.
func (x *Index) Vectors() [][]float32 {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := len(x.data) / x.dim
	out := make([][]float32, n)
	for pos := range out {
		out[pos] = slices.Clone(x.data[pos*x.dim : (pos+1)*x.dim])
	}
	return out
}

// SquaredL2 returns the squared Euclidean distance between a and b,
// accumulated in float64. The slices must have equal length.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
