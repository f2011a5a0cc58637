package chunking

import (
	"github.com/custodia-labs/kbase/internal/chunking/recursive"
	"github.com/custodia-labs/kbase/internal/chunking/window"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// RegisterDefaults registers the built-in strategies with the registry.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(domain.ChunkerRecursive, buildRecursive)
	r.Register(domain.ChunkerWindow, buildWindow)
}

// NewDefaultRegistry creates a registry with the built-in strategies.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

func buildRecursive(settings domain.ChunkSettings) (driven.Chunker, error) {
	return recursive.New(settings.Size, settings.Overlap)
}

func buildWindow(settings domain.ChunkSettings) (driven.Chunker, error) {
	return window.New(window.WithChunkSize(settings.Size), window.WithOverlap(settings.Overlap))
}
