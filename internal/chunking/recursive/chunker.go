// Package recursive splits text on a cascade of separators, keeping
// paragraphs and sentences together where they fit.
package recursive

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/custodia-labs/kbase/internal/chunking/window"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Name is the strategy name reported by the chunker.
const Name = string(domain.ChunkerRecursive)

// Separators are tried in order: paragraph, line, sentence, word, character.
var Separators = []string{"\n\n", "\n", ". ", " ", ""}

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker wraps the langchaingo recursive character splitter and enforces
// the size bound on its output.
type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

// New creates a recursive chunker measuring size and overlap in characters.
func New(size, overlap int) (*Chunker, error) {
	settings := domain.ChunkSettings{Size: size, Overlap: overlap}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(Separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)

	return &Chunker{size: size, overlap: overlap, splitter: splitter}, nil
}

// Name returns the strategy name.
func (c *Chunker) Name() string {
	return Name
}

// Split returns trimmed, non-empty chunks of at most size characters.
func (c *Chunker) Split(_ context.Context, text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split: %w", err)
	}

	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) > c.size {
			// Merging can overshoot when a single piece has no separator left.
			out = append(out, window.Windows(p, c.size, c.overlap)...)
			continue
		}
		out = append(out, p)
	}
	return window.Number(out), nil
}
