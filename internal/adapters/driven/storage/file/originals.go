package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure OriginalStore implements the interface.
var _ driven.OriginalStore = (*OriginalStore)(nil)

// partialSuffix marks a copy that has not been committed yet.
const partialSuffix = ".partial"

// OriginalStore keeps the source bytes of ingested documents in one directory.
type OriginalStore struct {
	fs  afero.Fs
	dir string
}

// NewOriginalStore creates a store for dir on fs, creating the directory.
func NewOriginalStore(fs afero.Fs, dir string) (*OriginalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: documents directory is required", domain.ErrInvalidConfig)
	}
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create documents directory: %w", domain.ErrPersistence, err)
	}
	return &OriginalStore{fs: fs, dir: dir}, nil
}

// Dir returns the documents directory.
func (s *OriginalStore) Dir() string {
	return s.dir
}

// Path returns where filename is retained.
func (s *OriginalStore) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// Open opens path for reading.
func (s *OriginalStore) Open(path string) (driven.SourceFile, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	return f, nil
}

// retention is a staged copy awaiting Commit or Rollback.
type retention struct {
	fs      afero.Fs
	partial string
	final   string
}

// Commit renames the partial copy over the final name.
func (r *retention) Commit() error {
	if r.partial == "" {
		return nil
	}
	if err := r.fs.Rename(r.partial, r.final); err != nil {
		return fmt.Errorf("%w: keep original %s: %w", domain.ErrPersistence, filepath.Base(r.final), err)
	}
	return nil
}

// Rollback removes the partial copy.
func (r *retention) Rollback() error {
	if r.partial == "" {
		return nil
	}
	if err := r.fs.Remove(r.partial); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Retain copies srcPath to a partial file next to its final name.
func (s *OriginalStore) Retain(filename, srcPath string) (driven.Retention, error) {
	final := s.Path(filename)
	if filepath.Clean(srcPath) == final {
		return &retention{}, nil
	}

	src, err := s.fs.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer src.Close()

	partial := final + partialSuffix
	dst, err := s.fs.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: stage original: %w", domain.ErrPersistence, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = s.fs.Remove(partial)
		return nil, fmt.Errorf("%w: copy original: %w", domain.ErrPersistence, err)
	}
	if err := dst.Close(); err != nil {
		_ = s.fs.Remove(partial)
		return nil, fmt.Errorf("%w: close original: %w", domain.ErrPersistence, err)
	}
	return &retention{fs: s.fs, partial: partial, final: final}, nil
}

// Remove deletes the retained bytes for filename.
func (s *OriginalStore) Remove(filename string) error {
	if err := s.fs.Remove(s.Path(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove original %s: %w", filename, err)
	}
	return nil
}

// List returns the regular files in the documents directory, skipping
// partial copies and hidden files.
func (s *OriginalStore) List() ([]driven.OriginalFile, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	files := make([]driven.OriginalFile, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, partialSuffix) {
			continue
		}
		files = append(files, driven.OriginalFile{Name: name, Size: e.Size(), ModTime: e.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
