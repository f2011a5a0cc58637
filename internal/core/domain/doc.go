// Package domain defines the core business entities for kbase.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: One ingested source file, as held by the metadata registry
//   - Chunk: A bounded slice of a document's text, the unit of retrieval
//   - QueryResult: A ranked chunk returned by a query
//   - Settings: Knowledge base configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
