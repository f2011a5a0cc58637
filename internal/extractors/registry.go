package extractors

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/extractors/docx"
	"github.com/custodia-labs/kbase/internal/extractors/html"
	"github.com/custodia-labs/kbase/internal/extractors/markdown"
	"github.com/custodia-labs/kbase/internal/extractors/pdf"
	"github.com/custodia-labs/kbase/internal/extractors/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry selects an extractor by file extension.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Extractor)}
}

// NewDefaultRegistry creates a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(pdf.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	return r
}

// Register adds an extractor for each of its extensions.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byExt[Extension(filename)]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches to the extractor registered for filename's extension.
func (r *Registry) Extract(ctx context.Context, filename string, src io.ReaderAt, size int64) (string, error) {
	ext := Extension(filename)

	r.mu.RLock()
	e, ok := r.byExt[ext]
	r.mu.RUnlock()

	if !ok {
		if ext == "" {
			return "", fmt.Errorf("%w: %q has no extension", domain.ErrUnsupportedType, filename)
		}
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, ext)
	}
	return e.Extract(ctx, src, size)
}

// Extension returns the lower-cased extension of filename, including the dot.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
