package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kbase/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.SnapshotStore = (*Store)(nil)

// DatabaseFile is the database name inside the data directory.
const DatabaseFile = "kbase.db"

// Meta keys.
const (
	metaModel     = "model"
	metaDimension = "dimension"
)

// Store is a SQLite-backed snapshot store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidConfig)
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrPersistence, err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrPersistence, err)
	}
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %w", domain.ErrPersistence, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrPersistence, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Location returns the database file path.
func (s *Store) Location() string {
	return s.path
}

// migrate applies all pending .up.sql migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_snapshot.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		logger.Debug("sqlite: applied migration %s", name)
	}

	return nil
}

// Save replaces the stored snapshot in one transaction.
func (s *Store) Save(ctx context.Context, snap *driven.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: refusing to save inconsistent snapshot: %w", domain.ErrPersistence, err)
	}
	if err := s.save(ctx, snap); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	logger.Debug("sqlite: saved %d vectors, %d documents to %s",
		len(snap.Vectors), len(snap.Documents), s.path)
	return nil
}

func (s *Store) save(ctx context.Context, snap *driven.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"vectors", "chunks", "documents", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	meta := map[string]string{
		metaModel:     snap.Model,
		metaDimension: strconv.Itoa(snap.Dimension),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("inserting meta %s: %w", k, err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (filename, upload_date, chunk_count, original_path)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()
	for _, doc := range snap.Documents {
		if _, err := docStmt.ExecContext(ctx, doc.Filename, formatTime(doc.UploadDate),
			doc.ChunkCount, doc.OriginalPath); err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.Filename, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_key, text, source, chunk_id, total_chunks, size, upload_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (position, chunk_key, embedding) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing vector insert: %w", err)
	}
	defer vecStmt.Close()

	for pos, key := range snap.Keys {
		chunk := snap.Chunks[key]
		m := chunk.Metadata
		if _, err := chunkStmt.ExecContext(ctx, key, chunk.Text, m.Source, m.ChunkID,
			m.TotalChunks, m.Size, formatTime(m.UploadDate)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", key, err)
		}
		if _, err := vecStmt.ExecContext(ctx, pos, key, flat.EncodeVector(snap.Vectors[pos])); err != nil {
			return fmt.Errorf("inserting vector %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. An empty database returns domain.ErrNotFound.
func (s *Store) Load(ctx context.Context) (*driven.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck

	meta, err := readMeta(ctx, tx)
	if err != nil {
		return nil, err
	}

	dimension, err := strconv.Atoi(meta[metaDimension])
	if err != nil {
		return nil, fmt.Errorf("%w: bad dimension %q", domain.ErrPersistence, meta[metaDimension])
	}
	snap := &driven.Snapshot{
		Model:     meta[metaModel],
		Dimension: dimension,
		Vectors:   [][]float32{},
		Keys:      []string{},
		Chunks:    map[string]domain.Chunk{},
	}

	if snap.Documents, err = readDocuments(ctx, tx); err != nil {
		return nil, err
	}
	if err := readChunks(ctx, tx, snap); err != nil {
		return nil, err
	}

	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return snap, nil
}

// LoadDocuments reads only the documents table.
func (s *Store) LoadDocuments(ctx context.Context) ([]domain.Document, error) {
	if _, err := readMeta(ctx, s.db); err != nil {
		return nil, err
	}
	return readDocuments(ctx, s.db)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readMeta(ctx context.Context, q querier) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("%w: querying meta: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: scanning meta: %w", domain.ErrPersistence, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if len(meta) == 0 {
		return nil, domain.ErrNotFound
	}
	return meta, nil
}

func readDocuments(ctx context.Context, q querier) ([]domain.Document, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT filename, upload_date, chunk_count, original_path
		FROM documents ORDER BY filename
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var doc domain.Document
		var uploaded string
		if err := rows.Scan(&doc.Filename, &uploaded, &doc.ChunkCount, &doc.OriginalPath); err != nil {
			return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrPersistence, err)
		}
		if doc.UploadDate, err = parseTime(uploaded); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return docs, nil
}

func readChunks(ctx context.Context, q querier, snap *driven.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT v.position, v.embedding, c.chunk_key, c.text, c.source, c.chunk_id,
		       c.total_chunks, c.size, c.upload_date
		FROM vectors v JOIN chunks c ON c.chunk_key = v.chunk_key
		ORDER BY v.position
	`)
	if err != nil {
		return fmt.Errorf("%w: querying chunks: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos      int
			blob     []byte
			key      string
			uploaded string
			chunk    domain.Chunk
		)
		m := &chunk.Metadata
		if err := rows.Scan(&pos, &blob, &key, &chunk.Text, &m.Source, &m.ChunkID,
			&m.TotalChunks, &m.Size, &uploaded); err != nil {
			return fmt.Errorf("%w: scanning chunk: %w", domain.ErrPersistence, err)
		}
		if pos != len(snap.Keys) {
			return fmt.Errorf("%w: gap in vector positions at %d", domain.ErrPersistence, pos)
		}
		vec, err := flat.DecodeVector(blob)
		if err != nil {
			return fmt.Errorf("%w: vector %d: %w", domain.ErrPersistence, pos, err)
		}
		if m.UploadDate, err = parseTime(uploaded); err != nil {
			return err
		}
		snap.Vectors = append(snap.Vectors, vec)
		snap.Keys = append(snap.Keys, key)
		snap.Chunks[key] = chunk
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q: %w", domain.ErrPersistence, s, err)
	}
	return t, nil
}
