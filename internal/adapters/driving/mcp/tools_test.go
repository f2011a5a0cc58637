package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

func newTestServer(t *testing.T, kb *mockKnowledgeBase) *Server {
	t.Helper()
	server, err := NewServer(&Ports{KnowledgeBase: kb})
	require.NoError(t, err)
	return server
}

func TestServer_handleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns passages", func(t *testing.T) {
		kb := &mockKnowledgeBase{
			results: []domain.QueryResult{
				{
					Content: "Paris is the capital of France.",
					Metadata: domain.ChunkMetadata{
						Source:      "geo.txt",
						ChunkID:     1,
						TotalChunks: 4,
					},
					RelevanceScore: 0.25,
				},
			},
		}
		server := newTestServer(t, kb)

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Question: "capital of France", K: 5})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "Paris is the capital of France.", output.Results[0].Content)
		assert.Equal(t, "geo.txt", output.Results[0].Source)
		assert.Equal(t, 1, output.Results[0].ChunkID)
		assert.Equal(t, 4, output.Results[0].TotalChunks)
		assert.InDelta(t, 0.25, output.Results[0].RelevanceScore, 1e-9)
		assert.Equal(t, 5, kb.lastK)
		assert.Equal(t, "capital of France", kb.lastQuestion)
	})

	t.Run("default k is 3", func(t *testing.T) {
		kb := &mockKnowledgeBase{}
		server := newTestServer(t, kb)

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Question: "anything"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.NotNil(t, output.Results)
		assert.Equal(t, domain.DefaultTopK, kb.lastK)
	})

	t.Run("configured default k", func(t *testing.T) {
		kb := &mockKnowledgeBase{}
		server, err := NewServer(&Ports{KnowledgeBase: kb, DefaultTopK: 7})
		require.NoError(t, err)

		_, _, err = server.handleQuery(ctx, nil, QueryInput{Question: "anything"})

		require.NoError(t, err)
		assert.Equal(t, 7, kb.lastK)
	})

	t.Run("empty question is invalid", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{})

		_, _, err := server.handleQuery(ctx, nil, QueryInput{})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("returns error on query failure", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{err: errors.New("index exploded")})

		_, _, err := server.handleQuery(ctx, nil, QueryInput{Question: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "index exploded")
	})
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests file with overrides", func(t *testing.T) {
		kb := &mockKnowledgeBase{}
		server := newTestServer(t, kb)

		size, overlap := 300, 0
		input := IngestInput{Path: "/tmp/notes.txt", Filename: "renamed.txt", ChunkSize: &size, ChunkOverlap: &overlap}
		_, output, err := server.handleIngest(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "renamed.txt", output.Filename)
		assert.Equal(t, 2, output.ChunkCount)
		assert.Equal(t, "/tmp/notes.txt", kb.lastPath)
		require.NotNil(t, kb.lastOpts.ChunkSize)
		require.NotNil(t, kb.lastOpts.ChunkOverlap)
		assert.Equal(t, 300, *kb.lastOpts.ChunkSize)
		assert.Equal(t, 0, *kb.lastOpts.ChunkOverlap)
	})

	t.Run("omitted overrides use settings", func(t *testing.T) {
		kb := &mockKnowledgeBase{}
		server := newTestServer(t, kb)

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Path: "/tmp/notes.txt"})

		require.NoError(t, err)
		assert.Nil(t, kb.lastOpts.ChunkSize)
		assert.Nil(t, kb.lastOpts.ChunkOverlap)
	})

	t.Run("path is required", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("wraps ingestion failure", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{err: domain.ErrUnsupportedType})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Path: "/tmp/slides.pptx"})

		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
		assert.Contains(t, err.Error(), "/tmp/slides.pptx")
	})
}

func TestServer_handleList(t *testing.T) {
	ctx := context.Background()

	t.Run("lists documents", func(t *testing.T) {
		kb := &mockKnowledgeBase{docs: []domain.Document{{Filename: "a.txt", ChunkCount: 3}}}
		server := newTestServer(t, kb)

		_, output, err := server.handleList(ctx, nil, ListInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "a.txt", output.Documents[0].Filename)
	})

	t.Run("empty registry is an empty list", func(t *testing.T) {
		server := newTestServer(t, &mockKnowledgeBase{})

		_, output, err := server.handleList(ctx, nil, ListInput{})

		require.NoError(t, err)
		assert.NotNil(t, output.Documents)
		assert.Equal(t, 0, output.Count)
	})
}

func TestServer_handleDelete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		kb      *mockKnowledgeBase
		want    bool
		wantErr bool
	}{
		{name: "deletes registered document", kb: &mockKnowledgeBase{deleted: true}, want: true},
		{name: "unknown document is not an error", kb: &mockKnowledgeBase{deleted: false}, want: false},
		{name: "persistence failure", kb: &mockKnowledgeBase{err: domain.ErrPersistence}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.kb)

			_, output, err := server.handleDelete(ctx, nil, DeleteInput{Filename: "a.txt"})

			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrPersistence)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, output.Deleted)
			assert.Equal(t, "a.txt", output.Filename)
			assert.Equal(t, "a.txt", tt.kb.lastFilename)
		})
	}
}
