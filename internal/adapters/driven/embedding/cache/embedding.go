// Package cache decorates an embedding service with an LRU cache keyed by text.
package cache

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService serves repeated texts from memory.
// Embeddings are deterministic, so a cached vector is always valid.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// New wraps inner with an LRU cache holding up to size vectors.
func New(inner driven.EmbeddingService, size int) (*EmbeddingService, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedding cache size must be greater than zero, got %d", size)
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &EmbeddingService{inner: inner, cache: c}, nil
}

// Embed returns the cached vector for text or computes and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := s.cache.Get(text); ok {
		return slices.Clone(vec), nil
	}
	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(text, slices.Clone(vec))
	return vec, nil
}

// EmbedBatch embeds only the distinct texts missing from the cache.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missing := make([]string, 0, len(texts))
	pending := make(map[string][]int)

	for i, text := range texts {
		if vec, ok := s.cache.Get(text); ok {
			out[i] = slices.Clone(vec)
			continue
		}
		if _, seen := pending[text]; !seen {
			missing = append(missing, text)
		}
		pending[text] = append(pending[text], i)
	}

	if len(missing) > 0 {
		vecs, err := s.inner.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missing) {
			return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(vecs), len(missing))
		}
		for j, text := range missing {
			s.cache.Add(text, slices.Clone(vecs[j]))
			for _, i := range pending[text] {
				out[i] = slices.Clone(vecs[j])
			}
		}
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping delegates to the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close purges the cache and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}
