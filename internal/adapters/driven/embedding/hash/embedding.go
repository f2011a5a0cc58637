// Package hash provides a deterministic, dependency-free embedding service
// based on signed feature hashing of words and character trigrams.
//
// It needs no model download and no network, so it is the default provider.
// Texts sharing vocabulary land close together under L2 distance; it does not
// capture synonyms the way a trained model does.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelName identifies vectors produced by this service. Bump it whenever
// the feature scheme changes so old snapshots are detected as stale.
const ModelName = "hash-v1"

// Feature weights.
const (
	wordWeight    = 1.0
	trigramWeight = 0.5
)

// parallelThreshold is the batch size above which work is spread over the pool.
const parallelThreshold = 32

// Config holds configuration for the hash embedding service.
type Config struct {
	// Dimensions is the vector size (default: 384).
	Dimensions int

	// Workers bounds batch parallelism. Values below 2 embed sequentially.
	Workers int
}

// EmbeddingService embeds text by feature hashing.
type EmbeddingService struct {
	dims int
	pool *ants.Pool
}

// NewEmbeddingService creates a new hash embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = domain.DefaultDimensions
	}
	if cfg.Dimensions < 0 {
		return nil, fmt.Errorf("%w: hash dimensions must be positive, got %d",
			domain.ErrEmbeddingUnavailable, cfg.Dimensions)
	}

	s := &EmbeddingService{dims: cfg.Dimensions}
	if cfg.Workers > 1 {
		pool, err := ants.NewPool(cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("%w: worker pool: %w", domain.ErrEmbeddingUnavailable, err)
		}
		s.pool = pool
	}
	return s, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vector(text), nil
}

// EmbedBatch embeds texts, spreading large batches over the worker pool.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if s.pool == nil || len(texts) < parallelThreshold {
		for i, text := range texts {
			out[i] = s.vector(text)
		}
		return out, nil
	}

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			out[i] = s.vector(text)
		}
		if err := s.pool.Submit(task); err != nil {
			// Pool closed or overloaded: do the work inline.
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dims
}

// ModelName returns the feature scheme name.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds; there is nothing to reach.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases the worker pool.
func (s *EmbeddingService) Close() error {
	if s.pool != nil {
		s.pool.Release()
	}
	return nil
}

// vector hashes the features of text into an L2-normalised vector.
func (s *EmbeddingService) vector(text string) []float32 {
	acc := make([]float64, s.dims)
	for _, word := range tokenize(text) {
		s.add(acc, "w:"+word, wordWeight)
		for _, tri := range trigrams(word) {
			s.add(acc, "t:"+tri, trigramWeight)
		}
	}

	var norm float64
	for i, v := range acc {
		// Sublinear term frequency keeps repeated words from dominating.
		v = math.Copysign(math.Log1p(math.Abs(v)), v)
		acc[i] = v
		norm += v * v
	}

	vec := make([]float32, s.dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// add hashes feature into a signed bucket.
func (s *EmbeddingService) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(s.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// tokenize lower-cases text and splits it into letter/digit runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// trigrams returns the character trigrams of a word padded with boundary marks.
func trigrams(word string) []string {
	runes := []rune("^" + word + "$")
	if len(runes) < 3 {
		return nil
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}
