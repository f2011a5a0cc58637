// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - Extractor / ExtractorRegistry: Raw file bytes to text, selected by extension
//   - Chunker: Text to ordered, bounded chunks
//   - EmbeddingService: Text to fixed-length vectors
//   - VectorIndex: Exact nearest-neighbour search over appended vectors
//   - ChunkStore: Chunk key to chunk text and metadata
//   - MetadataRegistry: Filename to Document record
//   - SnapshotStore: Durable, atomic persistence of the three stores above
//   - OriginalStore: Retained source bytes
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or chunking package
package driven
