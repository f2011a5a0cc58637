package driven

import (
	"context"
	"io"
)

// Extractor converts raw document bytes into a single text string.
// Each extractor handles a fixed set of file extensions.
type Extractor interface {
	// Extensions returns the lower-cased extensions handled, including the dot.
	Extensions() []string

	// Extract returns the full text of the document.
	// Unreadable or corrupt input fails with domain.ErrExtraction.
	Extract(ctx context.Context, r io.ReaderAt, size int64) (string, error)
}

// ExtractorRegistry selects an extractor by filename extension.
type ExtractorRegistry interface {
	// Register adds an extractor, replacing any earlier one for the same extensions.
	Register(e Extractor)

	// Supports reports whether any extractor handles the filename's extension.
	Supports(filename string) bool

	// Extract dispatches to the extractor for filename.
	// Unknown extensions fail with domain.ErrUnsupportedType.
	Extract(ctx context.Context, filename string, r io.ReaderAt, size int64) (string, error)
}
