package driven

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// Chunker splits text into ordered, overlapping, bounded chunks.
type Chunker interface {
	// Name returns the strategy name for logging and stats.
	Name() string

	// Split returns chunks covering text in original order.
	// Each chunk carries its ChunkID, TotalChunks and Size; the caller
	// stamps Source and UploadDate. Empty text yields zero chunks.
	Split(ctx context.Context, text string) ([]domain.Chunk, error)
}

// ChunkerFactory builds a chunker for the given size and overlap.
// It fails with domain.ErrInvalidConfig unless 0 <= overlap < size.
type ChunkerFactory func(settings domain.ChunkSettings) (Chunker, error)
