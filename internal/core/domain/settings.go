package domain

import (
	"fmt"
	"path/filepath"
)

// Default tuning values.
const (
	DefaultChunkSize       = 500
	DefaultChunkOverlap    = 50
	DefaultTopK            = 3
	DefaultDimensions      = 384
	DefaultCacheSize       = 1024
	DefaultEmbedWorkers    = 4
	DefaultOllamaURL       = "http://localhost:11434"
	DefaultLocalModel      = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultOllamaModel     = "all-minilm"
	DefaultWatchRatePerSec = 2.0
)

// ChunkerStrategy names a chunking algorithm.
type ChunkerStrategy string

// Available chunking strategies.
const (
	// ChunkerRecursive splits on a cascade of separators.
	ChunkerRecursive ChunkerStrategy = "recursive"

	// ChunkerWindow slides a fixed-width window over the text.
	ChunkerWindow ChunkerStrategy = "window"
)

// IsValid returns true if the strategy is recognised.
func (s ChunkerStrategy) IsValid() bool {
	return s == ChunkerRecursive || s == ChunkerWindow
}

// EmbeddingProvider names an embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingHash is the in-process feature hashing embedder.
	EmbeddingHash EmbeddingProvider = "hash"

	// EmbeddingLocal runs a sentence-transformer model in process.
	EmbeddingLocal EmbeddingProvider = "local"

	// EmbeddingOllama calls a local Ollama daemon.
	EmbeddingOllama EmbeddingProvider = "ollama"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingHash, EmbeddingLocal, EmbeddingOllama:
		return true
	default:
		return false
	}
}

// DefaultModel returns the model used when none is configured.
func (p EmbeddingProvider) DefaultModel() string {
	switch p {
	case EmbeddingLocal:
		return DefaultLocalModel
	case EmbeddingOllama:
		return DefaultOllamaModel
	case EmbeddingHash:
		return "hash-v1"
	default:
		return ""
	}
}

// StorageBackend names a snapshot persistence backend.
type StorageBackend string

// Available storage backends.
const (
	// StorageFile writes index.bin, docstore.json and metadata.toml.
	StorageFile StorageBackend = "file"

	// StorageSQLite writes a single SQLite database.
	StorageSQLite StorageBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageFile || b == StorageSQLite
}

// ChunkSettings bounds chunk size and overlap, in characters.
type ChunkSettings struct {
	Strategy ChunkerStrategy
	Size     int
	Overlap  int
}

// Validate enforces 0 <= overlap < size.
func (c ChunkSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than size %d",
			ErrInvalidConfig, c.Overlap, c.Size)
	}
	return nil
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	Provider   EmbeddingProvider
	Model      string
	Dimensions int
	BaseURL    string
	ModelsDir  string
	CacheSize  int
	Workers    int
}

// ModelOrDefault returns the configured model, or the provider default.
func (e EmbeddingSettings) ModelOrDefault() string {
	if e.Model != "" {
		return e.Model
	}
	return e.Provider.DefaultModel()
}

// StorageSettings configures where state lives on disk.
type StorageSettings struct {
	Backend      StorageBackend
	DataDir      string
	DocumentsDir string

	// ReembedOnModelChange rebuilds a snapshot from retained chunk text
	// when it was built by a different model, instead of refusing to open.
	ReembedOnModelChange bool
}

// Settings is the complete knowledge base configuration.
type Settings struct {
	Storage   StorageSettings
	Chunking  ChunkSettings
	Embedding EmbeddingSettings
	TopK      int

	// WatchRatePerSecond caps ingestions triggered by the directory watcher.
	WatchRatePerSecond float64
}

// DefaultSettings returns settings rooted at the given home directory.
func DefaultSettings(home string) Settings {
	return Settings{
		Storage: StorageSettings{
			Backend:      StorageFile,
			DataDir:      filepath.Join(home, "data"),
			DocumentsDir: filepath.Join(home, "documents"),
		},
		Chunking: ChunkSettings{
			Strategy: ChunkerRecursive,
			Size:     DefaultChunkSize,
			Overlap:  DefaultChunkOverlap,
		},
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingHash,
			Dimensions: DefaultDimensions,
			BaseURL:    DefaultOllamaURL,
			ModelsDir:  filepath.Join(home, "models"),
			CacheSize:  DefaultCacheSize,
			Workers:    DefaultEmbedWorkers,
		},
		TopK:               DefaultTopK,
		WatchRatePerSecond: DefaultWatchRatePerSec,
	}
}

// Validate checks the settings for consistency.
func (s Settings) Validate() error {
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, s.Storage.Backend)
	}
	if s.Storage.DataDir == "" || s.Storage.DocumentsDir == "" {
		return fmt.Errorf("%w: data and documents directories are required", ErrInvalidConfig)
	}
	if !s.Chunking.Strategy.IsValid() {
		return fmt.Errorf("%w: unknown chunking strategy %q", ErrInvalidConfig, s.Chunking.Strategy)
	}
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding dimensions must not be negative", ErrInvalidConfig)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: query top_k must be positive, got %d", ErrInvalidConfig, s.TopK)
	}
	return nil
}
