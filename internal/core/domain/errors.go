package domain

import "errors"

// Domain errors represent business logic failures.
// Callers match them with errors.Is; adapters wrap them with context.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a document extension no extractor handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrExtraction indicates a document could not be read or parsed.
	ErrExtraction = errors.New("extraction failed")

	// ErrInvalidConfig indicates bad configuration, such as chunk overlap >= chunk size.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates the embedding provider failed to load.
	// This is fatal at startup.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrModelMismatch indicates a persisted index built by a different embedding model.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrIngestion wraps any failure while adding a document.
	ErrIngestion = errors.New("ingestion failed")

	// ErrPersistence indicates a snapshot could not be saved or loaded.
	ErrPersistence = errors.New("persistence failed")

	// Lifecycle Errors.

	// ErrNotReady indicates an operation was called before the knowledge base opened.
	ErrNotReady = errors.New("knowledge base not ready")

	// ErrClosed indicates the knowledge base has been closed.
	ErrClosed = errors.New("knowledge base closed")
)
