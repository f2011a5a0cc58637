package memory

import (
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.MetadataRegistry = (*Registry)(nil)

// Registry is an in-memory implementation of driven.MetadataRegistry.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewRegistry creates a registry holding docs.
func NewRegistry(docs ...domain.Document) *Registry {
	r := &Registry{docs: make(map[string]domain.Document, len(docs))}
	for _, d := range docs {
		r.docs[d.Filename] = d
	}
	return r
}

// Upsert inserts or replaces the record for doc.Filename.
func (r *Registry) Upsert(doc domain.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.Filename] = doc
}

// Get retrieves a record by filename.
func (r *Registry) Get(filename string) (domain.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[filename]
	return doc, ok
}

// Delete removes a record, reporting whether it existed.
func (r *Registry) Delete(filename string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[filename]; !ok {
		return false
	}
	delete(r.docs, filename)
	return true
}

// List returns every record sorted by filename.
func (r *Registry) List() []domain.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]domain.Document, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	slices.SortFunc(docs, func(a, b domain.Document) int {
		return strings.Compare(a.Filename, b.Filename)
	})
	return docs
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
