// Package window provides a fixed-width sliding window chunker.
package window

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Name is the strategy name reported by the chunker.
const Name = string(domain.ChunkerWindow)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits text into fixed-width windows measured in characters.
// Window i covers [i*(size-overlap), i*(size-overlap)+size); the last window
// may be shorter.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a new window chunker with the given options.
// It fails with domain.ErrInvalidConfig unless 0 <= overlap < size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: domain.DefaultChunkSize,
		overlap:   domain.DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	settings := domain.ChunkSettings{Size: c.chunkSize, Overlap: c.overlap}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns the strategy name.
func (c *Chunker) Name() string {
	return Name
}

// Split slides the window over text. Empty text produces no chunks.
func (c *Chunker) Split(_ context.Context, text string) ([]domain.Chunk, error) {
	pieces := Windows(text, c.chunkSize, c.overlap)
	return Number(pieces), nil
}

// Windows returns the raw window texts over the characters of text.
// The caller guarantees 0 <= overlap < size.
func Windows(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)
	stride := size - overlap

	windows := make([]string, 0, total/stride+1)
	for start := 0; start < total; start += stride {
		end := start + size
		if end > total {
			end = total
		}
		windows = append(windows, string(runes[start:end]))

		// The window already reaches the end; another would only repeat overlap.
		if end == total {
			break
		}
	}
	return windows
}

// Number wraps texts as chunks, stamping position, sibling count and size.
func Number(texts []string) []domain.Chunk {
	if len(texts) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			Text: t,
			Metadata: domain.ChunkMetadata{
				ChunkID:     i,
				TotalChunks: len(texts),
				Size:        len([]rune(t)),
			},
		}
	}
	return chunks
}
