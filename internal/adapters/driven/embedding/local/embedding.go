// Package local runs a sentence-transformer embedding model in process
// through langchaingo's cybertron backend. Models are downloaded into the
// models directory on first use and loaded from there afterwards.
package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/embeddings/cybertron"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultBatchSize is how many texts are sent to the model at once.
const DefaultBatchSize = 32

// probeText is embedded once at construction to learn the model's width.
const probeText = "dimension probe"

// Config holds configuration for the local embedding service.
type Config struct {
	// Model is the Hugging Face model id (default: sentence-transformers/all-MiniLM-L6-v2).
	Model string

	// ModelsDir is where model files are cached.
	ModelsDir string

	// Dimensions, when set, must match the loaded model.
	Dimensions int

	// BatchSize bounds texts per model call (default: 32).
	BatchSize int
}

// EmbeddingService embeds text with a locally loaded transformer model.
type EmbeddingService struct {
	model      string
	dimensions int
	embedder   embeddings.Embedder
}

// NewEmbeddingService loads the model. Any failure is fatal and wraps
// domain.ErrEmbeddingUnavailable.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = domain.DefaultLocalModel
	}

	opts := []cybertron.Option{cybertron.WithModel(cfg.Model)}
	if cfg.ModelsDir != "" {
		opts = append(opts, cybertron.WithModelsDir(cfg.ModelsDir))
	}

	logger.Debug("local embedding: loading %s from %s", cfg.Model, cfg.ModelsDir)
	client, err := cybertron.NewCybertron(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load model %s: %w", domain.ErrEmbeddingUnavailable, cfg.Model, err)
	}
	return newWithClient(ctx, client, cfg)
}

// newWithClient wraps an embedder client and probes its dimension.
func newWithClient(ctx context.Context, client embeddings.EmbedderClient, cfg Config) (*EmbeddingService, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: construct embedder: %w", domain.ErrEmbeddingUnavailable, err)
	}

	probe, err := embedder.EmbedQuery(ctx, probeText)
	if err != nil {
		return nil, fmt.Errorf("%w: probe model %s: %w", domain.ErrEmbeddingUnavailable, cfg.Model, err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("%w: model %s returned an empty vector", domain.ErrEmbeddingUnavailable, cfg.Model)
	}
	if cfg.Dimensions > 0 && cfg.Dimensions != len(probe) {
		return nil, fmt.Errorf("%w: %w: model %s produces %d values, configured %d",
			domain.ErrEmbeddingUnavailable, domain.ErrDimensionMismatch, cfg.Model, len(probe), cfg.Dimensions)
	}

	return &EmbeddingService{
		model:      cfg.Model,
		dimensions: len(probe),
		embedder:   embedder,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("local embed: %w", err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts in model-sized batches.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("local embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("local embed batch: got %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// Dimensions returns the width probed at construction.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model id.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds the probe text.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.embedder.EmbedQuery(ctx, probeText)
	return err
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
