// Package embedding builds the configured embedding service.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/kbase/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/kbase/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/kbase/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/kbase/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// NewService creates the embedding service named by settings, checks it is
// reachable and wraps it in a cache when CacheSize is positive.
// Every failure wraps domain.ErrEmbeddingUnavailable.
func NewService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := create(ctx, settings)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}

	if settings.CacheSize > 0 {
		cached, err := cache.New(svc, settings.CacheSize)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		svc = cached
	}

	logger.Debug("embedding: provider=%s model=%s dimensions=%d cache=%d",
		settings.Provider, svc.ModelName(), svc.Dimensions(), settings.CacheSize)
	return svc, nil
}

func create(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.EmbeddingHash, "":
		svc, err := hash.NewEmbeddingService(hash.Config{
			Dimensions: settings.Dimensions,
			Workers:    settings.Workers,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	case domain.EmbeddingLocal:
		svc, err := local.NewEmbeddingService(ctx, local.Config{
			Model:      settings.ModelOrDefault(),
			ModelsDir:  settings.ModelsDir,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	case domain.EmbeddingOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.ModelOrDefault(),
			Dimensions: settings.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}
}
