package memory

import (
	"fmt"
	"maps"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[string]domain.Chunk),
	}
}

// Put stores a chunk under a new key.
func (s *ChunkStore) Put(key string, chunk domain.Chunk) error {
	if key == "" {
		return fmt.Errorf("%w: empty chunk key", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.chunks[key]; exists {
		return fmt.Errorf("%w: chunk key %q already stored", domain.ErrInvalidInput, key)
	}
	s.chunks[key] = chunk
	return nil
}

// Get retrieves a chunk by key.
func (s *ChunkStore) Get(key string) (domain.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[key]
	return chunk, ok
}

// Len returns the number of stored chunks.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// All returns a copy of every stored chunk.
func (s *ChunkStore) All() map[string]domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.chunks)
}
