package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure KnowledgeBase implements the interface.
var _ driving.KnowledgeBase = (*KnowledgeBase)(nil)

// Deps are the collaborators a knowledge base is assembled from.
type Deps struct {
	Settings domain.Settings

	Embedder        driven.EmbeddingService
	ChunkerStrategy domain.ChunkerStrategy
	Chunkers        driven.ChunkerFactory
	Extractors      driven.ExtractorRegistry

	NewIndex      driven.VectorIndexFactory
	NewChunkStore func() driven.ChunkStore
	NewRegistry   func(docs ...domain.Document) driven.MetadataRegistry

	Snapshots driven.SnapshotStore
	Originals driven.OriginalStore

	// Now defaults to time.Now.
	Now func() time.Time
	// NewKey defaults to random UUIDs.
	NewKey func() string
}

func (d *Deps) validate() error {
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("Embedder", d.Embedder != nil)
	check("Chunkers", d.Chunkers != nil)
	check("Extractors", d.Extractors != nil)
	check("NewIndex", d.NewIndex != nil)
	check("NewChunkStore", d.NewChunkStore != nil)
	check("NewRegistry", d.NewRegistry != nil)
	check("Snapshots", d.Snapshots != nil)
	check("Originals", d.Originals != nil)
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing dependencies: %s", domain.ErrInvalidConfig, strings.Join(missing, ", "))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewKey == nil {
		d.NewKey = uuid.NewString
	}
	if d.ChunkerStrategy == "" {
		d.ChunkerStrategy = d.Settings.Chunking.Strategy
	}
	return nil
}

// kbState is one immutable generation of the knowledge base. Writers build
// a new generation and swap it in; readers keep the one they started with.
type kbState struct {
	index    driven.VectorIndex
	keys     []string // index position -> chunk key
	chunks   driven.ChunkStore
	registry driven.MetadataRegistry
}

// KnowledgeBase owns the vector index, chunk store and metadata registry.
type KnowledgeBase struct {
	deps    Deps
	chunker driven.Chunker

	mu    sync.RWMutex
	state domain.State
	cur   *kbState
}

// Open assembles a knowledge base from deps and loads its snapshot.
// It moves Uninitialized -> Loading -> Ready and then auto-ingests the
// documents directory when nothing is registered.
func Open(ctx context.Context, deps Deps) (*KnowledgeBase, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	chunker, err := deps.Chunkers(deps.Settings.Chunking)
	if err != nil {
		return nil, err
	}

	kb := &KnowledgeBase{deps: deps, chunker: chunker, state: domain.StateUninitialized}
	if err := kb.load(ctx); err != nil {
		return nil, err
	}

	if kb.cur.registry.Len() == 0 {
		kb.autoIngest(ctx)
	}
	return kb, nil
}

// load reads the snapshot and moves to Ready.
func (kb *KnowledgeBase) load(ctx context.Context) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.state = domain.StateLoading
	logger.Section("Loading knowledge base")

	st, err := kb.restore(ctx)
	if err != nil {
		kb.state = domain.StateUninitialized
		return err
	}
	kb.cur = st
	kb.state = domain.StateReady
	logger.Info("knowledge base ready: %d documents, %d chunks from %s",
		st.registry.Len(), st.index.Len(), kb.deps.Snapshots.Location())
	return nil
}

// restore turns the persisted snapshot into a state. Missing or unreadable
// snapshots yield an empty state.
func (kb *KnowledgeBase) restore(ctx context.Context) (*kbState, error) {
	snap, err := kb.deps.Snapshots.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Info("no snapshot at %s, starting fresh", kb.deps.Snapshots.Location())
		return kb.emptyState()
	case err != nil:
		logger.Warn("%v; starting with an empty knowledge base", err)
		return kb.emptyState()
	}

	model, dims := kb.deps.Embedder.ModelName(), kb.deps.Embedder.Dimensions()
	if snap.Model != model || snap.Dimension != dims {
		if len(snap.Documents) == 0 && len(snap.Keys) == 0 {
			logger.Info("empty snapshot built with %s (%d dimensions), starting fresh with %s",
				snap.Model, snap.Dimension, model)
			return kb.emptyState()
		}
		if !kb.deps.Settings.Storage.ReembedOnModelChange {
			if snap.Dimension != dims {
				return nil, fmt.Errorf("%w: snapshot has %d dimensions, %s produces %d",
					domain.ErrDimensionMismatch, snap.Dimension, model, dims)
			}
			return nil, fmt.Errorf("%w: %w: snapshot built with %q, active model is %q",
				domain.ErrDimensionMismatch, domain.ErrModelMismatch, snap.Model, model)
		}
		return kb.reembed(ctx, snap)
	}

	return kb.buildState(ctx, snap.Vectors, snap.Keys, snap.Chunks, snap.Documents)
}

// reembed rebuilds a snapshot from another model using the stored chunk texts.
func (kb *KnowledgeBase) reembed(ctx context.Context, snap *driven.Snapshot) (*kbState, error) {
	logger.Warn("snapshot built with %s (%d dimensions); re-embedding %d chunks with %s",
		snap.Model, snap.Dimension, len(snap.Keys), kb.deps.Embedder.ModelName())

	texts := make([]string, len(snap.Keys))
	for i, key := range snap.Keys {
		texts[i] = snap.Chunks[key].Text
	}
	vectors, err := kb.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("re-embed snapshot: %w", err)
	}
	st, err := kb.buildState(ctx, vectors, snap.Keys, snap.Chunks, snap.Documents)
	if err != nil {
		return nil, err
	}
	if err := kb.persist(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (kb *KnowledgeBase) emptyState() (*kbState, error) {
	index, err := kb.deps.NewIndex(kb.deps.Embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	return &kbState{
		index:    index,
		keys:     []string{},
		chunks:   kb.deps.NewChunkStore(),
		registry: kb.deps.NewRegistry(),
	}, nil
}

// buildState creates a fresh generation from parallel vectors and keys.
func (kb *KnowledgeBase) buildState(
	ctx context.Context,
	vectors [][]float32,
	keys []string,
	chunks map[string]domain.Chunk,
	docs []domain.Document,
) (*kbState, error) {
	st, err := kb.emptyState()
	if err != nil {
		return nil, err
	}
	if len(vectors) > 0 {
		if _, err := st.index.Insert(ctx, vectors); err != nil {
			return nil, err
		}
	}
	for _, key := range keys {
		if err := st.chunks.Put(key, chunks[key]); err != nil {
			return nil, err
		}
	}
	st.keys = append(st.keys, keys...)
	for _, doc := range docs {
		st.registry.Upsert(doc)
	}
	return st, nil
}

// snapshot flattens a state for persistence.
func (kb *KnowledgeBase) snapshot(st *kbState) (*driven.Snapshot, error) {
	vectors := make([][]float32, len(st.keys))
	for pos := range st.keys {
		v, err := st.index.Vector(pos)
		if err != nil {
			return nil, err
		}
		vectors[pos] = v
	}
	return &driven.Snapshot{
		Model:     kb.deps.Embedder.ModelName(),
		Dimension: st.index.Dimension(),
		Vectors:   vectors,
		Keys:      append([]string(nil), st.keys...),
		Chunks:    st.chunks.All(),
		Documents: st.registry.List(),
	}, nil
}

func (kb *KnowledgeBase) persist(ctx context.Context, st *kbState) error {
	snap, err := kb.snapshot(st)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return kb.deps.Snapshots.Save(ctx, snap)
}

// ready returns the current state (caller must hold the lock).
func (kb *KnowledgeBase) ready() (*kbState, error) {
	switch kb.state {
	case domain.StateReady:
		return kb.cur, nil
	case domain.StateClosed:
		return nil, domain.ErrClosed
	default:
		return nil, domain.ErrNotReady
	}
}

// embed embeds texts and checks each vector against the index width.
func (kb *KnowledgeBase) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := kb.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}
	dims := kb.deps.Embedder.Dimensions()
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: chunk %d embedded to %d values, want %d",
				domain.ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return vectors, nil
}

// survivors copies every entry of st not owned by filename into a new generation.
func (kb *KnowledgeBase) survivors(ctx context.Context, st *kbState, filename string) (*kbState, error) {
	next, err := kb.emptyState()
	if err != nil {
		return nil, err
	}

	var vectors [][]float32
	for pos, key := range st.keys {
		chunk, ok := st.chunks.Get(key)
		if !ok {
			return nil, fmt.Errorf("position %d refers to missing chunk %s", pos, key)
		}
		if chunk.Metadata.Source == filename {
			continue
		}
		v, err := st.index.Vector(pos)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
		next.keys = append(next.keys, key)
		if err := next.chunks.Put(key, chunk); err != nil {
			return nil, err
		}
	}
	if len(vectors) > 0 {
		if _, err := next.index.Insert(ctx, vectors); err != nil {
			return nil, err
		}
	}
	for _, doc := range st.registry.List() {
		if doc.Filename != filename {
			next.registry.Upsert(doc)
		}
	}
	return next, nil
}

// AddDocument embeds chunks and replaces any earlier ingestion of filename.
func (kb *KnowledgeBase) AddDocument(
	ctx context.Context,
	filename string,
	chunks []domain.Chunk,
	originalPath string,
) error {
	if err := validateFilename(filename); err != nil {
		return err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	st, err := kb.ready()
	if err != nil {
		return err
	}
	if err := kb.add(ctx, st, filename, chunks, originalPath); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrIngestion, filename, err)
	}
	return nil
}

// add builds, persists and swaps in the next generation (caller must hold the lock).
func (kb *KnowledgeBase) add(
	ctx context.Context,
	st *kbState,
	filename string,
	chunks []domain.Chunk,
	originalPath string,
) error {
	if len(chunks) == 0 {
		return errors.New("document produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := kb.embed(ctx, texts)
	if err != nil {
		return err
	}

	next, err := kb.survivors(ctx, st, filename)
	if err != nil {
		return err
	}

	uploaded := kb.deps.Now().UTC()
	keys := make([]string, len(chunks))
	for i, c := range chunks {
		c.Metadata.ChunkID = i
		c.Metadata.TotalChunks = len(chunks)
		if c.Metadata.Size == 0 {
			c.Metadata.Size = len([]rune(c.Text))
		}
		c.Metadata.Source = filename
		c.Metadata.UploadDate = uploaded

		keys[i] = kb.deps.NewKey()
		if err := next.chunks.Put(keys[i], c); err != nil {
			return err
		}
	}
	if _, err := next.index.Insert(ctx, vectors); err != nil {
		return err
	}
	next.keys = append(next.keys, keys...)
	next.registry.Upsert(domain.Document{
		Filename:     filename,
		UploadDate:   uploaded,
		ChunkCount:   len(chunks),
		OriginalPath: originalPath,
	})

	if err := kb.persist(ctx, next); err != nil {
		return err
	}
	kb.cur = next

	replaced := ""
	if _, ok := st.registry.Get(filename); ok {
		replaced = " (replaced)"
	}
	logger.Info("added %s: %d chunks%s", filename, len(chunks), replaced)
	return nil
}

// Query returns up to k passages nearest to question.
func (kb *KnowledgeBase) Query(ctx context.Context, question string, k int) ([]domain.QueryResult, error) {
	kb.mu.RLock()
	st, err := kb.ready()
	kb.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if k <= 0 {
		k = domain.DefaultTopK
	}
	results := []domain.QueryResult{}
	if st.index.Len() == 0 {
		return results, nil
	}

	vec, err := kb.deps.Embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := st.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(st.keys) {
			logger.Warn("query: index position %d has no chunk key", hit.Position)
			continue
		}
		chunk, ok := st.chunks.Get(st.keys[hit.Position])
		if !ok {
			logger.Warn("query: chunk %s missing from store", st.keys[hit.Position])
			continue
		}
		results = append(results, domain.QueryResult{
			Content:        chunk.Text,
			Metadata:       chunk.Metadata,
			RelevanceScore: hit.Distance,
		})
	}
	logger.Debug("query %q: %d results", question, len(results))
	return results, nil
}

// DeleteDocument removes filename by rebuilding the index without its chunks.
func (kb *KnowledgeBase) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	st, err := kb.ready()
	if err != nil {
		return false, err
	}
	if _, ok := st.registry.Get(filename); !ok {
		return false, nil
	}

	next, err := kb.survivors(ctx, st, filename)
	if err != nil {
		return false, fmt.Errorf("%w: rebuild without %s: %w", domain.ErrPersistence, filename, err)
	}
	if err := kb.persist(ctx, next); err != nil {
		return false, fmt.Errorf("delete %s: %w", filename, err)
	}
	kb.cur = next

	if err := kb.deps.Originals.Remove(filename); err != nil {
		logger.Warn("deleted %s but could not remove its original: %v", filename, err)
	}
	logger.Info("deleted %s: %d chunks remain", filename, next.index.Len())
	return true, nil
}

// ListDocuments returns all registered documents sorted by filename.
func (kb *KnowledgeBase) ListDocuments(_ context.Context) ([]domain.Document, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	st, err := kb.ready()
	if err != nil {
		return nil, err
	}
	return st.registry.List(), nil
}

// SaveToDisk persists the current generation.
func (kb *KnowledgeBase) SaveToDisk(ctx context.Context) error {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	st, err := kb.ready()
	if err != nil {
		return err
	}
	if err := kb.persist(ctx, st); err != nil {
		logger.Warn("save failed: %v", err)
		return err
	}
	return nil
}

// Stats summarises the knowledge base.
func (kb *KnowledgeBase) Stats(_ context.Context) (domain.Stats, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	stats := domain.Stats{
		State:      kb.state,
		Dimensions: kb.deps.Embedder.Dimensions(),
		Model:      kb.deps.Embedder.ModelName(),
		Chunker:    string(kb.deps.ChunkerStrategy),
	}
	st, err := kb.ready()
	if err != nil {
		return stats, err
	}
	stats.Documents = st.registry.Len()
	stats.Chunks = st.index.Len()
	return stats, nil
}

// State returns the lifecycle state.
func (kb *KnowledgeBase) State() domain.State {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.state
}

// Close moves to Closed and releases the embedder and snapshot store.
// Closing twice is a no-op.
func (kb *KnowledgeBase) Close() error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if kb.state == domain.StateClosed {
		return nil
	}
	kb.state = domain.StateClosed
	kb.cur = nil

	return errors.Join(kb.deps.Embedder.Close(), kb.deps.Snapshots.Close())
}

// validateFilename rejects names that cannot be a registry key or a file
// inside the documents directory.
func validateFilename(filename string) error {
	switch {
	case strings.TrimSpace(filename) == "":
		return fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	case strings.ContainsAny(filename, `/\`), filename == ".", filename == "..":
		return fmt.Errorf("%w: filename %q must not contain a path", domain.ErrInvalidInput, filename)
	}
	return nil
}
