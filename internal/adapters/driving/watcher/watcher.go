// Package watcher keeps the knowledge base in step with the documents
// directory. New and modified files are ingested; removed or renamed files
// are deleted from the index.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// DefaultDebounce is how long the watcher waits for a file to settle.
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watcher closed")

// Action is what the watcher did for a file.
type Action string

// Actions reported through Config.OnEvent.
const (
	ActionIngest Action = "ingest"
	ActionDelete Action = "delete"
	ActionSkip   Action = "skip"
)

// Event reports the outcome of one change.
type Event struct {
	Filename string
	Action   Action
	Chunks   int
	Err      error
}

// Config configures a Watcher.
type Config struct {
	// Dir is the documents directory to watch.
	Dir string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// RatePerSecond caps ingestions and deletions. Zero or less means unlimited.
	RatePerSecond float64

	// Supports reports whether a filename has an extractor.
	// Nil accepts every file.
	Supports func(filename string) bool

	// OnEvent, if set, is called after each change is applied.
	OnEvent func(Event)
}

// Watcher applies documents directory changes to a knowledge base.
type Watcher struct {
	kb      driving.KnowledgeBase
	cfg     Config
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// New creates a watcher for cfg.Dir.
func New(kb driving.KnowledgeBase, cfg Config) (*Watcher, error) {
	if kb == nil {
		return nil, fmt.Errorf("%w: knowledge base is required", domain.ErrInvalidConfig)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: directory is required", domain.ErrInvalidConfig)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Watcher{
		kb:      kb,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Run watches until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.cfg.Dir)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()
	defer cancel()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	logger.Info("watcher: watching %s", w.cfg.Dir)

	pending := make(map[string]Action)
	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			name, action, ok := w.handleFsEvent(ev)
			if !ok {
				continue
			}
			logger.Debug("watcher: %s %s", ev.Op, name)
			pending[name] = action
			timer.Reset(w.cfg.Debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)

		case <-timer.C:
			if err := w.flush(ctx, pending); err != nil {
				return nil
			}
			pending = make(map[string]Action)
		}
	}
}

// Close stops a running watcher. It is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	return nil
}

// handleFsEvent maps a filesystem event to the action it calls for.
func (w *Watcher) handleFsEvent(ev fsnotify.Event) (string, Action, bool) {
	name := filepath.Base(ev.Name)
	if isIgnored(name) {
		return "", "", false
	}

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		return name, ActionDelete, true

	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil || info.IsDir() {
			return "", "", false
		}
		if w.cfg.Supports != nil && !w.cfg.Supports(name) {
			return "", "", false
		}
		return name, ActionIngest, true

	default:
		return "", "", false
	}
}

// flush applies pending changes in filename order. It returns an error only
// when ctx is done.
func (w *Watcher) flush(ctx context.Context, pending map[string]Action) error {
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		w.emit(w.apply(ctx, name, pending[name]))
	}
	return nil
}

func (w *Watcher) apply(ctx context.Context, name string, action Action) Event {
	ev := Event{Filename: name, Action: action}

	switch action {
	case ActionDelete:
		deleted, err := w.kb.DeleteDocument(ctx, name)
		if err != nil {
			ev.Err = err
			logger.Warn("watcher: delete %s: %v", name, err)
		} else if !deleted {
			ev.Action = ActionSkip
		} else {
			logger.Info("watcher: deleted %s", name)
		}

	case ActionIngest:
		path := filepath.Join(w.cfg.Dir, name)
		fresh, err := w.upToDate(ctx, name, path)
		if err != nil {
			ev.Err = err
			return ev
		}
		if fresh {
			ev.Action = ActionSkip
			return ev
		}
		ing, err := w.kb.IngestFile(ctx, name, path, driving.IngestOptions{})
		if err != nil {
			ev.Err = err
			logger.Warn("watcher: ingest %s: %v", name, err)
			return ev
		}
		ev.Chunks = ing.Document.ChunkCount
		logger.Info("watcher: ingested %s (%d chunks)", name, ev.Chunks)
	}
	return ev
}

// upToDate reports whether name is registered and not modified since.
func (w *Watcher) upToDate(ctx context.Context, name, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	docs, err := w.kb.ListDocuments(ctx)
	if err != nil {
		return false, err
	}
	for i := range docs {
		if docs[i].Filename == name {
			return !info.ModTime().After(docs[i].UploadDate), nil
		}
	}
	return false, nil
}

func (w *Watcher) emit(ev Event) {
	if w.cfg.OnEvent != nil {
		w.cfg.OnEvent(ev)
	}
}

// isIgnored skips hidden files and in-progress copies.
func isIgnored(name string) bool {
	if name == "." || name == ".." {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".partial")
}
