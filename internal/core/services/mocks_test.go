package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/kbase/internal/chunking"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/extractors"
)

const testDocsDir = "/kb/documents"

// mockEmbeddingService wraps the hash embedder with failure injection.
type mockEmbeddingService struct {
	inner     *hash.EmbeddingService
	model     string
	batchErr  error
	queryErr  error
	truncate  bool // return vectors one value short
	batches   int
	closed    bool
	closeErrs error
}

func newMockEmbedder(t *testing.T, dims int) *mockEmbeddingService {
	t.Helper()
	inner, err := hash.NewEmbeddingService(hash.Config{Dimensions: dims})
	require.NoError(t, err)
	return &mockEmbeddingService{inner: inner, model: hash.ModelName}
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.inner.Embed(ctx, text)
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	vecs, err := m.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if m.truncate {
		for i := range vecs {
			vecs[i] = vecs[i][:len(vecs[i])-1]
		}
	}
	return vecs, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return m.inner.Dimensions() }
func (m *mockEmbeddingService) ModelName() string            { return m.model }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error {
	m.closed = true
	return m.closeErrs
}

// mockSnapshotStore keeps a deep copy of the last saved snapshot.
type mockSnapshotStore struct {
	mu      sync.Mutex
	snap    *driven.Snapshot
	saveErr error
	loadErr error
	saves   int
	closed  bool
}

func copySnapshot(s *driven.Snapshot) *driven.Snapshot {
	out := &driven.Snapshot{
		Model:     s.Model,
		Dimension: s.Dimension,
		Keys:      slices.Clone(s.Keys),
		Chunks:    maps.Clone(s.Chunks),
		Documents: slices.Clone(s.Documents),
		Vectors:   make([][]float32, len(s.Vectors)),
	}
	for i, v := range s.Vectors {
		out.Vectors[i] = slices.Clone(v)
	}
	if out.Chunks == nil {
		out.Chunks = map[string]domain.Chunk{}
	}
	return out
}

func (m *mockSnapshotStore) Load(_ context.Context) (*driven.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return nil, domain.ErrNotFound
	}
	return copySnapshot(m.snap), nil
}

func (m *mockSnapshotStore) Save(_ context.Context, snap *driven.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, m.saveErr)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	m.snap = copySnapshot(snap)
	m.saves++
	return nil
}

func (m *mockSnapshotStore) LoadDocuments(ctx context.Context) ([]domain.Document, error) {
	snap, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Documents, nil
}

func (m *mockSnapshotStore) Location() string { return "memory" }

func (m *mockSnapshotStore) Close() error {
	m.closed = true
	return nil
}

// testEnv bundles the collaborators of one knowledge base under test.
type testEnv struct {
	embedder  *mockEmbeddingService
	snapshots *mockSnapshotStore
	fs        afero.Fs
	originals *file.OriginalStore
	clock     time.Time
	keys      int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	originals, err := file.NewOriginalStore(fs, testDocsDir)
	require.NoError(t, err)
	return &testEnv{
		embedder:  newMockEmbedder(t, 256),
		snapshots: &mockSnapshotStore{},
		fs:        fs,
		originals: originals,
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (e *testEnv) deps(t *testing.T) Deps {
	t.Helper()
	settings := domain.DefaultSettings("/kb")
	settings.Storage.DocumentsDir = testDocsDir
	settings.Chunking.Size = 200
	settings.Chunking.Overlap = 20

	sel, err := chunking.NewDefaultRegistry().Select(domain.ChunkerRecursive)
	require.NoError(t, err)

	return Deps{
		Settings:        settings,
		Embedder:        e.embedder,
		ChunkerStrategy: sel.Strategy,
		Chunkers:        sel.Factory,
		Extractors:      extractors.NewDefaultRegistry(),
		NewIndex:        flat.Factory,
		NewChunkStore:   func() driven.ChunkStore { return memory.NewChunkStore() },
		NewRegistry: func(docs ...domain.Document) driven.MetadataRegistry {
			return memory.NewRegistry(docs...)
		},
		Snapshots: e.snapshots,
		Originals: e.originals,
		Now: func() time.Time {
			e.clock = e.clock.Add(time.Second)
			return e.clock
		},
		NewKey: func() string {
			e.keys++
			return fmt.Sprintf("key-%04d", e.keys)
		},
	}
}

func (e *testEnv) open(t *testing.T) *KnowledgeBase {
	t.Helper()
	kb, err := Open(context.Background(), e.deps(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kb.Close() })
	return kb
}

func (e *testEnv) writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(e.fs, path, []byte(content), 0600))
}

// chunksOf builds chunks the way a chunker would.
func chunksOf(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		out[i] = domain.Chunk{
			Text: text,
			Metadata: domain.ChunkMetadata{
				ChunkID:     i,
				TotalChunks: len(texts),
				Size:        len([]rune(text)),
			},
		}
	}
	return out
}

var errBoom = errors.New("boom")
