package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// autoIngestExt is the extension picked up when an empty knowledge base opens.
const autoIngestExt = ".txt"

// IngestFile extracts, chunks and adds the file at srcPath under filename,
// retaining a copy of its bytes in the documents directory. An empty
// filename defaults to the base name of srcPath.
func (kb *KnowledgeBase) IngestFile(
	ctx context.Context,
	filename, srcPath string,
	opts driving.IngestOptions,
) (*domain.Ingestion, error) {
	// Fail before reading the source; the state is checked again under the
	// write lock below.
	kb.mu.RLock()
	_, err := kb.ready()
	kb.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = filepath.Base(srcPath)
	}
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	if !kb.deps.Extractors.Supports(filename) {
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrIngestion, domain.ErrUnsupportedType, filepath.Ext(filename))
	}

	chunker, err := kb.chunkerFor(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIngestion, err)
	}

	text, err := kb.extract(ctx, filename, srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIngestion, filename, err)
	}
	chunks, err := chunker.Split(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %s: %w", domain.ErrIngestion, filename, err)
	}
	logger.Debug("ingest %s: %d characters, %d chunks (%s)", filename, len(text), len(chunks), chunker.Name())

	kb.mu.Lock()
	defer kb.mu.Unlock()

	st, err := kb.ready()
	if err != nil {
		return nil, err
	}

	retained, err := kb.deps.Originals.Retain(filename, srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIngestion, filename, err)
	}
	if err := kb.add(ctx, st, filename, chunks, kb.deps.Originals.Path(filename)); err != nil {
		if rbErr := retained.Rollback(); rbErr != nil {
			logger.Warn("ingest %s: discard retained copy: %v", filename, rbErr)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIngestion, filename, err)
	}
	if err := retained.Commit(); err != nil {
		logger.Warn("ingest %s: indexed, but the original was not kept: %v", filename, err)
	}

	doc, _ := kb.cur.registry.Get(filename)
	stamped := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Metadata.ChunkID = i
		c.Metadata.TotalChunks = len(chunks)
		c.Metadata.Source = doc.Filename
		c.Metadata.UploadDate = doc.UploadDate
		stamped[i] = c
	}
	return &domain.Ingestion{Document: doc, Text: text, Chunks: stamped}, nil
}

// chunkerFor returns the configured chunker, or a new one when opts override it.
func (kb *KnowledgeBase) chunkerFor(opts driving.IngestOptions) (driven.Chunker, error) {
	if opts.ChunkSize == nil && opts.ChunkOverlap == nil {
		return kb.chunker, nil
	}
	cfg := kb.deps.Settings.Chunking
	if opts.ChunkSize != nil {
		cfg.Size = *opts.ChunkSize
	}
	if opts.ChunkOverlap != nil {
		cfg.Overlap = *opts.ChunkOverlap
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return kb.deps.Chunkers(cfg)
}

func (kb *KnowledgeBase) extract(ctx context.Context, filename, srcPath string) (string, error) {
	src, err := kb.deps.Originals.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", srcPath, err)
	}
	return kb.deps.Extractors.Extract(ctx, filename, src, info.Size())
}

// SyncDirectory ingests supported files in the documents directory that are
// unregistered or modified after their last ingestion.
func (kb *KnowledgeBase) SyncDirectory(ctx context.Context) (*driving.SyncReport, error) {
	return kb.ingestDirectory(ctx, kb.deps.Extractors.Supports)
}

// autoIngest loads every .txt file from the documents directory.
func (kb *KnowledgeBase) autoIngest(ctx context.Context) {
	report, err := kb.ingestDirectory(ctx, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), autoIngestExt)
	})
	if err != nil {
		logger.Warn("auto-ingest: %v", err)
		return
	}
	if len(report.Ingested) > 0 {
		logger.Info("auto-ingest: added %d documents from %s", len(report.Ingested), kb.deps.Originals.Dir())
	}
}

func (kb *KnowledgeBase) ingestDirectory(ctx context.Context, include func(string) bool) (*driving.SyncReport, error) {
	kb.mu.RLock()
	st, err := kb.ready()
	kb.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	files, err := kb.deps.Originals.List()
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}

	report := &driving.SyncReport{
		Ingested:  []string{},
		Unchanged: []string{},
		Failed:    map[string]error{},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !include(f.Name) {
			continue
		}
		if doc, ok := st.registry.Get(f.Name); ok && !f.ModTime.After(doc.UploadDate) {
			report.Unchanged = append(report.Unchanged, f.Name)
			continue
		}
		if _, err := kb.IngestFile(ctx, f.Name, kb.deps.Originals.Path(f.Name), driving.IngestOptions{}); err != nil {
			logger.Warn("sync: %v", err)
			report.Failed[f.Name] = err
			continue
		}
		report.Ingested = append(report.Ingested, f.Name)
	}
	return report, nil
}
