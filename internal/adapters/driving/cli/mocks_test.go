package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/core/services"
)

// mockKnowledgeBase implements driving.KnowledgeBase for testing.
type mockKnowledgeBase struct {
	IngestFileFunc     func(ctx context.Context, filename, srcPath string, opts driving.IngestOptions) (*domain.Ingestion, error)
	SyncDirectoryFunc  func(ctx context.Context) (*driving.SyncReport, error)
	QueryFunc          func(ctx context.Context, question string, k int) ([]domain.QueryResult, error)
	DeleteDocumentFunc func(ctx context.Context, filename string) (bool, error)
	ListDocumentsFunc  func(ctx context.Context) ([]domain.Document, error)
	SaveToDiskFunc     func(ctx context.Context) error
	StatsFunc          func(ctx context.Context) (domain.Stats, error)
}

func (m *mockKnowledgeBase) AddDocument(context.Context, string, []domain.Chunk, string) error {
	return nil
}

func (m *mockKnowledgeBase) IngestFile(
	ctx context.Context, filename, srcPath string, opts driving.IngestOptions,
) (*domain.Ingestion, error) {
	if m.IngestFileFunc != nil {
		return m.IngestFileFunc(ctx, filename, srcPath, opts)
	}
	return &domain.Ingestion{Document: domain.Document{Filename: filename, ChunkCount: 1}}, nil
}

func (m *mockKnowledgeBase) SyncDirectory(ctx context.Context) (*driving.SyncReport, error) {
	if m.SyncDirectoryFunc != nil {
		return m.SyncDirectoryFunc(ctx)
	}
	return &driving.SyncReport{Failed: map[string]error{}}, nil
}

func (m *mockKnowledgeBase) Query(ctx context.Context, question string, k int) ([]domain.QueryResult, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, question, k)
	}
	return []domain.QueryResult{}, nil
}

func (m *mockKnowledgeBase) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	if m.DeleteDocumentFunc != nil {
		return m.DeleteDocumentFunc(ctx, filename)
	}
	return false, nil
}

func (m *mockKnowledgeBase) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	if m.ListDocumentsFunc != nil {
		return m.ListDocumentsFunc(ctx)
	}
	return []domain.Document{}, nil
}

func (m *mockKnowledgeBase) SaveToDisk(ctx context.Context) error {
	if m.SaveToDiskFunc != nil {
		return m.SaveToDiskFunc(ctx)
	}
	return nil
}

func (m *mockKnowledgeBase) Stats(ctx context.Context) (domain.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return domain.Stats{State: domain.StateReady}, nil
}

// setupTestServices injects an in-memory settings service rooted at a temp
// directory and kb as the knowledge base, and resets command flags.
// Everything is restored when the test ends.
func setupTestServices(t *testing.T, kb driving.KnowledgeBase) *services.SettingsService {
	t.Helper()

	oldSettings, oldOpen, oldClose := settingsService, openKnowledgeBase, closeKnowledgeBase
	svc := services.NewSettingsService(memory.NewConfigStore(), t.TempDir())
	settingsService = svc
	if kb != nil {
		openKnowledgeBase = func(context.Context) (driving.KnowledgeBase, error) { return kb, nil }
	} else {
		openKnowledgeBase = nil
	}
	closeKnowledgeBase = nil
	resetFlags()

	t.Cleanup(func() {
		_ = releaseKnowledgeBase()
		settingsService, openKnowledgeBase, closeKnowledgeBase = oldSettings, oldOpen, oldClose
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return svc
}

func resetFlags() {
	verbose, logFormat, logLevel, configDir = false, "text", "", ""
	addName, addChunkSize, addChunkOverlap = "", 0, 0
	for _, name := range []string{"chunk-size", "chunk-overlap"} {
		addCmd.Flags().Lookup(name).Changed = false
	}
	queryK, queryJSON, queryFull = 0, false, false
	listJSON, versionJSON = false, false
	_ = mcpServeCmd.Flags().Set("port", "0")
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

// executeContext runs the root command under ctx. Cobra only hands the root
// context to subcommands whose own context is unset, and a context from an
// earlier run stays attached, so every command gets ctx explicitly.
func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	setContextAll(rootCmd, ctx)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func setContextAll(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		setContextAll(sub, ctx)
	}
}
