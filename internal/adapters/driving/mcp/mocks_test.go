package mcp

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// mockKnowledgeBase is a mock implementation of driving.KnowledgeBase.
type mockKnowledgeBase struct {
	results []domain.QueryResult
	docs    []domain.Document
	stats   domain.Stats
	deleted bool
	err     error

	// Recorded arguments.
	lastQuestion string
	lastK        int
	lastFilename string
	lastPath     string
	lastOpts     driving.IngestOptions
}

func (m *mockKnowledgeBase) AddDocument(_ context.Context, _ string, _ []domain.Chunk, _ string) error {
	return m.err
}

func (m *mockKnowledgeBase) IngestFile(
	_ context.Context, filename, srcPath string, opts driving.IngestOptions,
) (*domain.Ingestion, error) {
	m.lastFilename = filename
	m.lastPath = srcPath
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	name := filename
	if name == "" {
		name = "notes.txt"
	}
	return &domain.Ingestion{
		Document: domain.Document{Filename: name, ChunkCount: 2},
		Text:     "text",
	}, nil
}

func (m *mockKnowledgeBase) SyncDirectory(_ context.Context) (*driving.SyncReport, error) {
	return &driving.SyncReport{Failed: map[string]error{}}, m.err
}

func (m *mockKnowledgeBase) Query(_ context.Context, question string, k int) ([]domain.QueryResult, error) {
	m.lastQuestion = question
	m.lastK = k
	return m.results, m.err
}

func (m *mockKnowledgeBase) DeleteDocument(_ context.Context, filename string) (bool, error) {
	m.lastFilename = filename
	return m.deleted, m.err
}

func (m *mockKnowledgeBase) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockKnowledgeBase) SaveToDisk(_ context.Context) error {
	return m.err
}

func (m *mockKnowledgeBase) Stats(_ context.Context) (domain.Stats, error) {
	return m.stats, m.err
}
