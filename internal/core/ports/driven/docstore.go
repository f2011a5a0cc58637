package driven

import "github.com/custodia-labs/kbase/internal/core/domain"

// ChunkStore maps an internally generated chunk key to its text and metadata.
// It is insert-only: a knowledge base replaces the whole store on rebuild.
type ChunkStore interface {
	// Put stores a chunk under key. Reusing a key fails with domain.ErrInvalidInput.
	Put(key string, chunk domain.Chunk) error

	// Get retrieves a chunk by key.
	Get(key string) (domain.Chunk, bool)

	// Len returns the number of stored chunks.
	Len() int

	// All returns a copy of every stored chunk keyed by chunk key.
	All() map[string]domain.Chunk
}

// MetadataRegistry holds one Document record per ingested filename.
type MetadataRegistry interface {
	// Upsert inserts or replaces the record for doc.Filename.
	Upsert(doc domain.Document)

	// Get retrieves a record by filename.
	Get(filename string) (domain.Document, bool)

	// Delete removes a record, reporting whether it existed.
	Delete(filename string) bool

	// List returns every record sorted by filename.
	List() []domain.Document

	// Len returns the number of records.
	Len() int
}
