package driven

import (
	"io"
	"io/fs"
	"time"
)

// SourceFile is an open document ready for extraction.
type SourceFile interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Stat() (fs.FileInfo, error)
}

// OriginalFile describes a file in the documents directory.
type OriginalFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Retention is a pending copy of source bytes into the documents directory.
// Exactly one of Commit or Rollback should be called.
type Retention interface {
	// Commit makes the retained copy visible under its final name.
	Commit() error

	// Rollback discards the copy, leaving any previous bytes in place.
	Rollback() error
}

// OriginalStore retains the source bytes of ingested documents.
type OriginalStore interface {
	// Dir returns the documents directory.
	Dir() string

	// Path returns where filename is retained.
	Path(filename string) string

	// Open opens any path for reading through the store's filesystem.
	Open(path string) (SourceFile, error)

	// Retain stages a copy of srcPath to be kept as filename.
	// When srcPath already is the retained path, nothing is copied.
	Retain(filename, srcPath string) (Retention, error)

	// Remove deletes the retained bytes for filename. A missing file is not an error.
	Remove(filename string) error

	// List returns the regular files in the documents directory, sorted by name.
	List() ([]OriginalFile, error)
}
