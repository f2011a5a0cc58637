package driving

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// KnowledgeBase is the only surface external actors use to reach the
// knowledge base. All operations are synchronous.
type KnowledgeBase interface {
	// AddDocument embeds and indexes pre-chunked text for filename, replacing
	// any earlier ingestion of the same filename, then persists.
	// Failures wrap domain.ErrIngestion and leave the knowledge base unchanged.
	AddDocument(ctx context.Context, filename string, chunks []domain.Chunk, originalPath string) error

	// IngestFile extracts and chunks the file at srcPath, retains its bytes
	// as filename, and adds the result.
	IngestFile(ctx context.Context, filename, srcPath string, opts IngestOptions) (*domain.Ingestion, error)

	// SyncDirectory ingests supported files in the documents directory that
	// are unregistered or changed since their last ingestion.
	SyncDirectory(ctx context.Context) (*SyncReport, error)

	// Query returns up to k passages nearest to question, most relevant first.
	// An empty knowledge base yields an empty slice, never an error.
	Query(ctx context.Context, question string, k int) ([]domain.QueryResult, error)

	// DeleteDocument removes filename by rebuilding the index without it.
	// Returns false, nil when filename is not registered.
	DeleteDocument(ctx context.Context, filename string) (bool, error)

	// ListDocuments returns all registered documents sorted by filename.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// SaveToDisk persists the index, chunk store and registry as one unit.
	SaveToDisk(ctx context.Context) error

	// Stats summarises the knowledge base.
	Stats(ctx context.Context) (domain.Stats, error)
}

// IngestOptions overrides chunking for a single ingestion.
// Nil fields fall back to the configured settings; an explicit zero overlap
// is honoured.
type IngestOptions struct {
	ChunkSize    *int
	ChunkOverlap *int
}

// SyncReport lists what a directory sync did.
type SyncReport struct {
	// Ingested holds filenames added or refreshed.
	Ingested []string

	// Unchanged holds filenames already up to date.
	Unchanged []string

	// Failed maps filenames to the reason they were not ingested.
	Failed map[string]error
}
