package driven

import "context"

// EmbeddingService maps text to fixed-length vectors. The same text always
// yields the same vector for a given model. A provider whose model cannot be
// loaded fails at construction with domain.ErrEmbeddingUnavailable.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is fixed for the lifetime of the loaded model.
	Dimensions() int

	// ModelName is recorded in snapshots and checked on load.
	ModelName() string

	// Ping makes a lightweight request to confirm the provider answers.
	Ping(ctx context.Context) error

	Close() error
}
