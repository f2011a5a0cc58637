// Package bootstrap assembles a knowledge base from settings. It is the only
// place that knows which adapter serves which port.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/custodia-labs/kbase/internal/adapters/driven/embedding"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbase/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/kbase/internal/chunking"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/services"
	"github.com/custodia-labs/kbase/internal/extractors"
	"github.com/custodia-labs/kbase/internal/logger"
)

// NewSnapshotStore opens the snapshot backend named by settings.
func NewSnapshotStore(settings domain.StorageSettings) (driven.SnapshotStore, error) {
	switch settings.Backend {
	case domain.StorageFile, "":
		store, err := file.NewSnapshotStore(settings.DataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.StorageSQLite:
		store, err := sqlite.NewStore(settings.DataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidConfig, settings.Backend)
	}
}

// Deps builds every collaborator a knowledge base needs. On success the
// caller owns Deps.Embedder and Deps.Snapshots.
func Deps(ctx context.Context, settings domain.Settings) (services.Deps, error) {
	if err := settings.Validate(); err != nil {
		return services.Deps{}, err
	}

	selection, err := chunking.NewDefaultRegistry().Select(settings.Chunking.Strategy)
	if err != nil {
		return services.Deps{}, err
	}

	originals, err := file.NewOriginalStore(afero.NewOsFs(), settings.Storage.DocumentsDir)
	if err != nil {
		return services.Deps{}, err
	}

	embedder, err := embedding.NewService(ctx, settings.Embedding)
	if err != nil {
		return services.Deps{}, err
	}

	snapshots, err := NewSnapshotStore(settings.Storage)
	if err != nil {
		embedder.Close()
		return services.Deps{}, err
	}

	logger.Debug("bootstrap: backend=%s location=%s chunker=%s",
		settings.Storage.Backend, snapshots.Location(), selection.Strategy)

	return services.Deps{
		Settings:        settings,
		Embedder:        embedder,
		ChunkerStrategy: selection.Strategy,
		Chunkers:        selection.Factory,
		Extractors:      extractors.NewDefaultRegistry(),
		NewIndex:        flat.Factory,
		NewChunkStore:   func() driven.ChunkStore { return memory.NewChunkStore() },
		NewRegistry: func(docs ...domain.Document) driven.MetadataRegistry {
			return memory.NewRegistry(docs...)
		},
		Snapshots: snapshots,
		Originals: originals,
	}, nil
}

// Open builds and opens a knowledge base for settings.
func Open(ctx context.Context, settings domain.Settings) (*services.KnowledgeBase, error) {
	deps, err := Deps(ctx, settings)
	if err != nil {
		return nil, err
	}
	kb, err := services.Open(ctx, deps)
	if err != nil {
		return nil, errors.Join(err, deps.Embedder.Close(), deps.Snapshots.Close())
	}
	return kb, nil
}

// NewHandle returns a handle that loads settings and opens the knowledge base
// on first use.
func NewHandle(load func() (domain.Settings, error)) *services.Handle {
	return services.NewHandle(func(ctx context.Context) (*services.KnowledgeBase, error) {
		settings, err := load()
		if err != nil {
			return nil, err
		}
		return Open(ctx, settings)
	})
}
