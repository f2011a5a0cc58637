package driven

import (
	"context"
	"fmt"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// Snapshot is the persisted state of one knowledge base: the vector array,
// the position to chunk key mapping, the chunk store and the registry.
type Snapshot struct {
	// Model is the embedding model that produced Vectors.
	Model string

	// Dimension is the width of every vector.
	Dimension int

	// Vectors holds one vector per index position.
	Vectors [][]float32

	// Keys maps index position to chunk key.
	Keys []string

	// Chunks maps chunk key to chunk.
	Chunks map[string]domain.Chunk

	// Documents holds the metadata registry records.
	Documents []domain.Document
}

// Validate checks that the snapshot is internally consistent: one key per
// vector, every key resolves to a chunk, and every registered document owns
// exactly ChunkCount chunks while every chunk belongs to a registered document.
func (s *Snapshot) Validate() error {
	if len(s.Vectors) != len(s.Keys) {
		return fmt.Errorf("%d vectors but %d keys", len(s.Vectors), len(s.Keys))
	}
	if len(s.Keys) != len(s.Chunks) {
		return fmt.Errorf("%d keys but %d chunks", len(s.Keys), len(s.Chunks))
	}
	if s.Dimension <= 0 && len(s.Vectors) > 0 {
		return fmt.Errorf("invalid dimension %d", s.Dimension)
	}
	for i, v := range s.Vectors {
		if len(v) != s.Dimension {
			return fmt.Errorf("%w: vector %d has %d values, want %d",
				domain.ErrDimensionMismatch, i, len(v), s.Dimension)
		}
	}

	owned := make(map[string]int, len(s.Documents))
	for _, key := range s.Keys {
		chunk, ok := s.Chunks[key]
		if !ok {
			return fmt.Errorf("key %q has no chunk", key)
		}
		owned[chunk.Metadata.Source]++
	}

	seen := make(map[string]bool, len(s.Documents))
	for _, doc := range s.Documents {
		if seen[doc.Filename] {
			return fmt.Errorf("document %q registered twice", doc.Filename)
		}
		seen[doc.Filename] = true
		if doc.ChunkCount <= 0 {
			return fmt.Errorf("document %q has no chunks", doc.Filename)
		}
		if owned[doc.Filename] != doc.ChunkCount {
			return fmt.Errorf("document %q records %d chunks but %d are stored",
				doc.Filename, doc.ChunkCount, owned[doc.Filename])
		}
	}
	for source := range owned {
		if !seen[source] {
			return fmt.Errorf("chunks stored for unregistered document %q", source)
		}
	}
	return nil
}

// SnapshotStore persists snapshots atomically. A reader never observes a
// partially written snapshot.
type SnapshotStore interface {
	// Load reads the last saved snapshot.
	// Returns domain.ErrNotFound if nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the persisted snapshot with snap as one unit.
	Save(ctx context.Context, snap *Snapshot) error

	// LoadDocuments reads only the metadata registry, without the index.
	LoadDocuments(ctx context.Context) ([]domain.Document, error)

	// Location describes where the snapshot lives, for logs and inspection.
	Location() string

	// Close releases resources.
	Close() error
}
