package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

const (
	goText    = "Go channels coordinate goroutines. A goroutine sends values on a channel."
	breadText = "Sourdough bread needs a starter, flour, water and salt. Bake the loaf hot."
)

func TestOpen_MissingDependencies(t *testing.T) {
	_, err := Open(context.Background(), Deps{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestOpen_FreshKnowledgeBase(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()

	assert.Equal(t, domain.StateReady, kb.State())

	results, err := kb.Query(ctx, "anything", 3)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	docs, err := kb.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestAddDocument_ThenList(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()

	require.NoError(t, kb.AddDocument(ctx, "b.txt", chunksOf(breadText), "/kb/documents/b.txt"))
	require.NoError(t, kb.AddDocument(ctx, "a.txt", chunksOf(goText, "second chunk"), "/kb/documents/a.txt"))

	docs, err := kb.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Filename)
	assert.Equal(t, 2, docs[0].ChunkCount)
	assert.Equal(t, "/kb/documents/a.txt", docs[0].OriginalPath)
	assert.Equal(t, "b.txt", docs[1].Filename)
	assert.Equal(t, 1, docs[1].ChunkCount)

	stats, err := kb.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 256, stats.Dimensions)
	assert.Equal(t, "recursive", stats.Chunker)
	assert.Equal(t, 2, env.snapshots.saves, "every add persists")
}

func TestQuery_RanksNearestFirst(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()

	require.NoError(t, kb.AddDocument(ctx, "go.txt", chunksOf(goText), ""))
	require.NoError(t, kb.AddDocument(ctx, "bread.txt", chunksOf(breadText), ""))

	results, err := kb.Query(ctx, "goroutines and channels", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "go.txt", results[0].Metadata.Source)
	assert.Equal(t, goText, results[0].Content)
	assert.LessOrEqual(t, results[0].RelevanceScore, results[1].RelevanceScore)
	assert.Equal(t, 0, results[0].Metadata.ChunkID)
	assert.Equal(t, 1, results[0].Metadata.TotalChunks)
	assert.False(t, results[0].Metadata.UploadDate.IsZero())
}

func TestQuery_DefaultK(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()

	require.NoError(t, kb.AddDocument(ctx, "many.txt", chunksOf("one", "two", "three", "four", "five"), ""))

	for _, k := range []int{0, -1} {
		results, err := kb.Query(ctx, "number", k)
		require.NoError(t, err)
		assert.Len(t, results, domain.DefaultTopK)
	}

	results, err := kb.Query(ctx, "number", 10)
	require.NoError(t, err)
	assert.Len(t, results, 5, "k beyond the index size returns everything")
}

func TestQuery_EmbeddingFailure(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()
	require.NoError(t, kb.AddDocument(ctx, "a.txt", chunksOf(goText), ""))

	env.embedder.queryErr = errBoom
	_, err := kb.Query(ctx, "anything", 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}

func TestAddDocument_ReingestReplacesChunks(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()

	require.NoError(t, kb.AddDocument(ctx, "notes.txt", chunksOf("old alpha text", "old beta text", "old gamma"), ""))
	require.NoError(t, kb.AddDocument(ctx, "other.txt", chunksOf(breadText), ""))
	require.NoError(t, kb.AddDocument(ctx, "notes.txt", chunksOf("fresh replacement text"), ""))

	docs, err := kb.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0].ChunkCount)

	results, err := kb.Query(ctx, "old alpha text", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotContains(t, r.Content, "old")
	}

	stats, err := kb.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Chunks)
}

func TestAddDocument_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		chunks   []domain.Chunk
		setup    func(env *testEnv)
		wantErr  error
	}{
		{
			name:     "empty filename",
			filename: "  ",
			chunks:   chunksOf("text"),
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "filename with path",
			filename: "dir/a.txt",
			chunks:   chunksOf("text"),
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "no chunks",
			filename: "empty.txt",
			chunks:   nil,
			wantErr:  domain.ErrIngestion,
		},
		{
			name:     "embedding fails",
			filename: "a.txt",
			chunks:   chunksOf("text"),
			setup:    func(env *testEnv) { env.embedder.batchErr = errBoom },
			wantErr:  domain.ErrIngestion,
		},
		{
			name:     "wrong vector width",
			filename: "a.txt",
			chunks:   chunksOf("text"),
			setup:    func(env *testEnv) { env.embedder.truncate = true },
			wantErr:  domain.ErrDimensionMismatch,
		},
		{
			name:     "persistence fails",
			filename: "a.txt",
			chunks:   chunksOf("text"),
			setup:    func(env *testEnv) { env.snapshots.saveErr = errBoom },
			wantErr:  domain.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			kb := env.open(t)
			ctx := context.Background()
			require.NoError(t, kb.AddDocument(ctx, "keep.txt", chunksOf(breadText), ""))
			if tt.setup != nil {
				tt.setup(env)
			}

			err := kb.AddDocument(ctx, tt.filename, tt.chunks, "")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr != domain.ErrInvalidInput {
				assert.ErrorIs(t, err, domain.ErrIngestion)
			}

			docs, err := kb.ListDocuments(ctx)
			require.NoError(t, err)
			require.Len(t, docs, 1, "failed add must leave the knowledge base unchanged")
			assert.Equal(t, "keep.txt", docs[0].Filename)
			stats, _ := kb.Stats(ctx)
			assert.Equal(t, 1, stats.Chunks)
		})
	}
}

func TestAddDocument_FailedReingestKeepsPrevious(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()
	require.NoError(t, kb.AddDocument(ctx, "a.txt", chunksOf(goText), ""))

	env.snapshots.saveErr = errBoom
	err := kb.AddDocument(ctx, "a.txt", chunksOf("replacement"), "")
	require.ErrorIs(t, err, domain.ErrIngestion)

	results, err := kb.Query(ctx, "goroutines", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, goText, results[0].Content)
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()
	env.writeFile(t, testDocsDir+"/go.txt", goText)

	require.NoError(t, kb.AddDocument(ctx, "go.txt", chunksOf(goText, "more about channels"), testDocsDir+"/go.txt"))
	require.NoError(t, kb.AddDocument(ctx, "bread.txt", chunksOf(breadText), ""))

	deleted, err := kb.DeleteDocument(ctx, "go.txt")
	require.NoError(t, err)
	assert.True(t, deleted)

	docs, err := kb.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "bread.txt", docs[0].Filename)

	results, err := kb.Query(ctx, "goroutines and channels", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bread.txt", results[0].Metadata.Source)

	_, err = env.fs.Stat(testDocsDir + "/go.txt")
	assert.Error(t, err, "original bytes are removed")

	require.Len(t, env.snapshots.snap.Keys, 1)
	assert.Len(t, env.snapshots.snap.Documents, 1)
}

func TestDeleteDocument_Unknown(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()
	require.NoError(t, kb.AddDocument(ctx, "a.txt", chunksOf(goText), ""))
	saves := env.snapshots.saves

	deleted, err := kb.DeleteDocument(ctx, "missing.txt")

	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, saves, env.snapshots.saves)
}

func TestDeleteDocument_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()
	require.NoError(t, kb.AddDocument(ctx, "a.txt", chunksOf(goText), ""))

	env.snapshots.saveErr = errBoom
	deleted, err := kb.DeleteDocument(ctx, "a.txt")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.False(t, deleted)

	docs, err := kb.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDeleteDocument_DoesNotReembed(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()
	require.NoError(t, kb.AddDocument(ctx, "a.txt", chunksOf(goText), ""))
	require.NoError(t, kb.AddDocument(ctx, "b.txt", chunksOf(breadText), ""))
	batches := env.embedder.batches

	_, err := kb.DeleteDocument(ctx, "a.txt")
	require.NoError(t, err)

	assert.Equal(t, batches, env.embedder.batches)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := Open(ctx, env.deps(t))
	require.NoError(t, err)
	require.NoError(t, first.AddDocument(ctx, "go.txt", chunksOf(goText), ""))
	require.NoError(t, first.AddDocument(ctx, "bread.txt", chunksOf(breadText), ""))
	require.NoError(t, first.SaveToDisk(ctx))
	before, err := first.Query(ctx, "bread flour", 2)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	env.embedder = newMockEmbedder(t, 256)
	second := env.open(t)

	docs, err := second.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	after, err := second.Query(ctx, "bread flour", 2)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveToDisk_Failure(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	env.snapshots.saveErr = errBoom

	err := kb.SaveToDisk(context.Background())

	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestOpen_CorruptSnapshotStartsFresh(t *testing.T) {
	env := newTestEnv(t)
	env.snapshots.loadErr = domain.ErrPersistence

	kb := env.open(t)

	assert.Equal(t, domain.StateReady, kb.State())
	docs, err := kb.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func seedSnapshot(t *testing.T, env *testEnv, model string, dims int) {
	t.Helper()
	vec := make([]float32, dims)
	vec[0] = 1
	env.snapshots.snap = &driven.Snapshot{
		Model:     model,
		Dimension: dims,
		Vectors:   [][]float32{vec},
		Keys:      []string{"k0"},
		Chunks: map[string]domain.Chunk{
			"k0": {Text: goText, Metadata: domain.ChunkMetadata{TotalChunks: 1, Size: len(goText), Source: "go.txt"}},
		},
		Documents: []domain.Document{{Filename: "go.txt", ChunkCount: 1}},
	}
}

func TestOpen_ModelMismatch(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		dims      int
		wantModel bool
	}{
		{name: "different dimension", model: "hash-v1", dims: 32},
		{name: "different model", model: "other-model", dims: 256, wantModel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			seedSnapshot(t, env, tt.model, tt.dims)

			_, err := Open(context.Background(), env.deps(t))

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
			if tt.wantModel {
				assert.ErrorIs(t, err, domain.ErrModelMismatch)
			}
		})
	}
}

func TestOpen_EmptySnapshotFromOtherModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		dims  int
	}{
		{name: "different dimension", model: "hash-v1", dims: 32},
		{name: "different model", model: "other-model", dims: 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.snapshots.snap = &driven.Snapshot{Model: tt.model, Dimension: tt.dims}
			ctx := context.Background()

			kb := env.open(t)

			stats, err := kb.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, stats.Documents)
			assert.Equal(t, 256, stats.Dimensions)

			require.NoError(t, kb.AddDocument(ctx, "a.txt", chunksOf("fresh text"), ""))
			assert.Equal(t, "hash-v1", env.snapshots.snap.Model)
			assert.Equal(t, 256, env.snapshots.snap.Dimension)
		})
	}
}

func TestOpen_ReembedOnModelChange(t *testing.T) {
	env := newTestEnv(t)
	seedSnapshot(t, env, "old-model", 32)
	deps := env.deps(t)
	deps.Settings.Storage.ReembedOnModelChange = true

	kb, err := Open(context.Background(), deps)
	require.NoError(t, err)
	defer kb.Close()

	results, err := kb.Query(context.Background(), "goroutines", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, goText, results[0].Content)

	assert.Equal(t, "hash-v1", env.snapshots.snap.Model)
	assert.Equal(t, 256, env.snapshots.snap.Dimension)
}

func TestClose(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()

	require.NoError(t, kb.Close())
	require.NoError(t, kb.Close())

	assert.Equal(t, domain.StateClosed, kb.State())
	assert.True(t, env.embedder.closed)
	assert.True(t, env.snapshots.closed)

	_, err := kb.Query(ctx, "x", 1)
	assert.ErrorIs(t, err, domain.ErrClosed)
	assert.ErrorIs(t, kb.AddDocument(ctx, "a.txt", chunksOf("x"), ""), domain.ErrClosed)
	_, err = kb.DeleteDocument(ctx, "a.txt")
	assert.ErrorIs(t, err, domain.ErrClosed)
	_, err = kb.ListDocuments(ctx)
	assert.ErrorIs(t, err, domain.ErrClosed)
	assert.ErrorIs(t, kb.SaveToDisk(ctx), domain.ErrClosed)
	stats, err := kb.Stats(ctx)
	assert.ErrorIs(t, err, domain.ErrClosed)
	assert.Equal(t, domain.StateClosed, stats.State)
}

func TestConcurrentQueriesDuringWrites(t *testing.T) {
	env := newTestEnv(t)
	kb := env.open(t)
	ctx := context.Background()
	require.NoError(t, kb.AddDocument(ctx, "seed.txt", chunksOf(breadText), ""))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				results, err := kb.Query(ctx, "bread", 3)
				assert.NoError(t, err)
				assert.NotEmpty(t, results)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, kb.AddDocument(ctx, "go.txt", chunksOf(goText, "extra"), ""))
	}
	wg.Wait()
}
