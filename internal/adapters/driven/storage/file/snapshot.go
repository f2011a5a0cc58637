package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/custodia-labs/kbase/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// File and directory names inside the data directory.
const (
	IndexFile    = "index.bin"
	DocstoreFile = "docstore.json"
	MetadataFile = "metadata.toml"

	currentDir = "store"
	stagingDir = "store.tmp"
	retiredDir = "store.old"
	lockFile   = ".lock"
)

// lockTimeout bounds how long Save waits for another process.
const lockTimeout = 10 * time.Second

// docstoreFile is the JSON layout of docstore.json.
type docstoreFile struct {
	Model     string                  `json:"model"`
	Dimension int                     `json:"dimension"`
	Positions []string                `json:"positions"`
	Chunks    map[string]domain.Chunk `json:"chunks"`
}

// metadataFile is the TOML layout of metadata.toml.
type metadataFile struct {
	Documents []domain.Document `toml:"documents"`
}

// SnapshotStore saves snapshots under a data directory.
type SnapshotStore struct {
	dir  string
	fs   afero.Afero
	lock *flock.Flock
}

// NewSnapshotStore creates a snapshot store rooted at dataDir, creating it if needed.
func NewSnapshotStore(dataDir string) (*SnapshotStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidConfig)
	}
	fs := afero.Afero{Fs: afero.NewOsFs()}
	if err := fs.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %w", domain.ErrPersistence, err)
	}
	return &SnapshotStore{
		dir:  dataDir,
		fs:   fs,
		lock: flock.New(filepath.Join(dataDir, lockFile)),
	}, nil
}

// Location returns the data directory.
func (s *SnapshotStore) Location() string {
	return s.dir
}

// Save writes snap to a staging directory and swaps it in.
func (s *SnapshotStore) Save(ctx context.Context, snap *driven.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: refusing to save inconsistent snapshot: %w", domain.ErrPersistence, err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("%w: acquire lock %s: %w", domain.ErrPersistence, s.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: lock %s is held by another process", domain.ErrPersistence, s.lock.Path())
	}
	defer s.lock.Unlock()

	staging := filepath.Join(s.dir, stagingDir)
	if err := s.fs.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: clear staging: %w", domain.ErrPersistence, err)
	}
	if err := s.fs.MkdirAll(staging, 0700); err != nil {
		return fmt.Errorf("%w: create staging: %w", domain.ErrPersistence, err)
	}
	if err := s.writeFiles(staging, snap); err != nil {
		_ = s.fs.RemoveAll(staging)
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if err := s.swap(staging); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	logger.Debug("snapshot: saved %d vectors, %d documents to %s",
		len(snap.Vectors), len(snap.Documents), s.dir)
	return nil
}

func (s *SnapshotStore) writeFiles(dir string, snap *driven.Snapshot) error {
	var index bytes.Buffer
	if err := flat.WriteIndex(&index, snap.Dimension, snap.Vectors); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := s.writeSynced(filepath.Join(dir, IndexFile), index.Bytes()); err != nil {
		return err
	}

	chunks := snap.Chunks
	if chunks == nil {
		chunks = map[string]domain.Chunk{}
	}
	positions := snap.Keys
	if positions == nil {
		positions = []string{}
	}
	docstore, err := json.MarshalIndent(docstoreFile{
		Model:     snap.Model,
		Dimension: snap.Dimension,
		Positions: positions,
		Chunks:    chunks,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode docstore: %w", err)
	}
	if err := s.writeSynced(filepath.Join(dir, DocstoreFile), docstore); err != nil {
		return err
	}

	metadata, err := toml.Marshal(metadataFile{Documents: snap.Documents})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return s.writeSynced(filepath.Join(dir, MetadataFile), metadata)
}

// writeSynced writes data and flushes it to stable storage.
func (s *SnapshotStore) writeSynced(path string, data []byte) error {
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// swap replaces the current snapshot directory with staging.
func (s *SnapshotStore) swap(staging string) error {
	current := filepath.Join(s.dir, currentDir)
	retired := filepath.Join(s.dir, retiredDir)

	if err := s.fs.RemoveAll(retired); err != nil {
		return fmt.Errorf("clear retired snapshot: %w", err)
	}
	exists, err := s.fs.DirExists(current)
	if err != nil {
		return fmt.Errorf("stat current snapshot: %w", err)
	}
	if exists {
		if err := s.fs.Rename(current, retired); err != nil {
			return fmt.Errorf("retire current snapshot: %w", err)
		}
	}
	if err := s.fs.Rename(staging, current); err != nil {
		if exists {
			_ = s.fs.Rename(retired, current)
		}
		return fmt.Errorf("promote snapshot: %w", err)
	}
	if err := s.fs.RemoveAll(retired); err != nil {
		logger.Warn("snapshot: failed to remove %s: %v", retired, err)
	}
	return nil
}

// snapshotDir returns the directory to read from. A crash between the two
// renames in swap leaves only the retired directory, which is still whole.
func (s *SnapshotStore) snapshotDir() (string, error) {
	for _, name := range []string{currentDir, retiredDir} {
		dir := filepath.Join(s.dir, name)
		ok, err := s.fs.DirExists(dir)
		if err != nil {
			return "", fmt.Errorf("%w: stat %s: %w", domain.ErrPersistence, dir, err)
		}
		if ok {
			if name == retiredDir {
				logger.Warn("snapshot: recovering from interrupted save using %s", dir)
			}
			return dir, nil
		}
	}
	return "", domain.ErrNotFound
}

// Load reads and validates the saved snapshot.
func (s *SnapshotStore) Load(_ context.Context) (*driven.Snapshot, error) {
	dir, err := s.snapshotDir()
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("%w: open index: %w", domain.ErrPersistence, err)
	}
	dim, vectors, err := flat.ReadIndex(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	raw, err := s.fs.ReadFile(filepath.Join(dir, DocstoreFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read docstore: %w", domain.ErrPersistence, err)
	}
	var ds docstoreFile
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("%w: decode docstore: %w", domain.ErrPersistence, err)
	}
	if ds.Dimension != dim {
		return nil, fmt.Errorf("%w: docstore dimension %d disagrees with index dimension %d",
			domain.ErrPersistence, ds.Dimension, dim)
	}

	docs, err := s.readDocuments(dir)
	if err != nil {
		return nil, err
	}

	snap := &driven.Snapshot{
		Model:     ds.Model,
		Dimension: dim,
		Vectors:   vectors,
		Keys:      ds.Positions,
		Chunks:    ds.Chunks,
		Documents: docs,
	}
	if snap.Chunks == nil {
		snap.Chunks = map[string]domain.Chunk{}
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return snap, nil
}

// LoadDocuments reads only metadata.toml.
func (s *SnapshotStore) LoadDocuments(_ context.Context) ([]domain.Document, error) {
	dir, err := s.snapshotDir()
	if err != nil {
		return nil, err
	}
	return s.readDocuments(dir)
}

func (s *SnapshotStore) readDocuments(dir string) ([]domain.Document, error) {
	raw, err := s.fs.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read metadata: %w", domain.ErrPersistence, err)
	}
	var meta metadataFile
	if err := toml.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %w", domain.ErrPersistence, err)
	}
	if meta.Documents == nil {
		meta.Documents = []domain.Document{}
	}
	return meta.Documents, nil
}

// Close releases the lock handle.
func (s *SnapshotStore) Close() error {
	if err := s.lock.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
