// Package sqlite provides a SQLite implementation of the snapshot store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A whole snapshot lives in one database:
//
//   - meta: embedding model and dimension
//   - vectors: one float32 blob per index position
//   - chunks: chunk text and metadata keyed by chunk key
//   - documents: the metadata registry
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Atomicity
//
// Save replaces every table inside a single transaction, so a reader sees
// either the previous snapshot or the new one.
package sqlite
