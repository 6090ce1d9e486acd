package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	memerrors "github.com/XingxingLi2017/memory-mcp/internal/errors"
)

// Store is the single persistence surface for memory-mcp: files, chunks, the
// FTS5 lexical index, and an in-memory HNSW vector index rebuilt from
// persisted blobs. Exactly one Store owns its database file at a time,
// guarded by an advisory file lock.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	lock *flock.Flock

	chunkSize int

	ftsOK bool
	vec   *vectorIndex
}

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA cache_size = -65536",
	"PRAGMA temp_store = MEMORY",
}

// Open opens (creating if absent) the database at path, performing an
// atomic schema rebuild if schema_version or chunkSize has changed since the
// last open.
func Open(path string, chunkSize int) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, memerrors.Wrap(err, memerrors.CodeFatalInit, "create db directory")
		}
	}

	lk := flock.New(path + ".lock")
	if path != "" {
		locked, err := lk.TryLock()
		if err != nil {
			return nil, memerrors.Wrap(err, memerrors.CodeFatalInit, "acquire store lock")
		}
		if !locked {
			return nil, memerrors.New(memerrors.CodeFatalInit, "database already owned by another process")
		}
	}

	db, err := openDB(path)
	if err != nil {
		lk.Unlock()
		return nil, memerrors.Wrap(err, memerrors.CodeFatalInit, "open database")
	}

	s := &Store{db: db, path: path, lock: lk, chunkSize: chunkSize}

	if err := s.initSchema(); err != nil {
		db.Close()
		lk.Unlock()
		return nil, memerrors.Wrap(err, memerrors.CodeFatalInit, "initialize schema")
	}

	needRebuild, err := s.needsRebuild(chunkSize)
	if err != nil {
		db.Close()
		lk.Unlock()
		return nil, memerrors.Wrap(err, memerrors.CodeFatalInit, "check schema version")
	}
	if needRebuild {
		if err := s.rebuild(chunkSize); err != nil {
			db.Close()
			lk.Unlock()
			return nil, memerrors.Wrap(err, memerrors.CodeStoreCorrupt, "rebuild schema")
		}
	}

	s.ftsOK = s.probeFTS()
	vec, err := loadVectorIndex(s.db)
	if err != nil {
		slog.Warn("vector_index_load_failed", "error", err)
		vec = newVectorIndex()
	}
	s.vec = vec

	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS files (
	path TEXT NOT NULL,
	source TEXT NOT NULL,
	hash TEXT NOT NULL,
	mtime INTEGER NOT NULL,
	size INTEGER NOT NULL,
	PRIMARY KEY (path, source)
);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	source TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	hash TEXT NOT NULL,
	text TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path, source);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	id UNINDEXED,
	path UNINDEXED,
	source UNINDEXED,
	start_line UNINDEXED,
	end_line UNINDEXED,
	text,
	tokenize = 'unicode61'
);

CREATE TABLE IF NOT EXISTS chunks_vec (
	id TEXT PRIMARY KEY,
	embedding BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS embedding_cache (
	hash TEXT PRIMARY KEY,
	embedding BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaDDL)
	return err
}

func (s *Store) needsRebuild(chunkSize int) (bool, error) {
	version, _ := s.getMeta("schema_version")
	size, _ := s.getMeta("chunk_size")

	if version == "" {
		// Fresh database: stamp meta and proceed, no rebuild needed.
		if err := s.setMeta("schema_version", fmt.Sprintf("%d", SchemaVersion)); err != nil {
			return false, err
		}
		if err := s.setMeta("chunk_size", fmt.Sprintf("%d", chunkSize)); err != nil {
			return false, err
		}
		return false, nil
	}

	if version != fmt.Sprintf("%d", SchemaVersion) {
		return true, nil
	}
	if size != "" && size != fmt.Sprintf("%d", chunkSize) {
		return true, nil
	}
	return false, nil
}

func (s *Store) getMeta(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO meta(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// probeFTS checks whether the FTS5 virtual table is usable (a trivial count
// query succeeds); returns false on any error rather than propagating it.
func (s *Store) probeFTS() bool {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks_fts`).Scan(&n)
	return err == nil
}

// FTSAvailable reports whether the lexical search path can be used.
func (s *Store) FTSAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ftsOK
}

// VecAvailable reports whether the vector search path has any vectors loaded.
func (s *Store) VecAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vec != nil && s.vec.Len() > 0
}

// rebuild performs the atomic schema rebuild dance: build a fresh sibling
// database, copy over embedding_cache, then swap it in for the primary path.
// In-memory stores (path == "") simply recreate in place.
func (s *Store) rebuild(chunkSize int) error {
	if s.path == "" {
		return s.rebuildInPlace(chunkSize)
	}

	tmpPath := fmt.Sprintf("%s.rebuild-%x", s.path, rand.Uint64())
	tmpDB, err := openDB(tmpPath)
	if err != nil {
		return fmt.Errorf("open rebuild target: %w", err)
	}

	if _, err := tmpDB.Exec(schemaDDL); err != nil {
		tmpDB.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("apply schema to rebuild target: %w", err)
	}

	if err := copyEmbeddingCache(s.db, tmpDB); err != nil {
		slog.Warn("embedding_cache_copy_partial", "error", err)
	}

	if _, err := tmpDB.Exec(`INSERT INTO meta(key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprintf("%d", SchemaVersion)); err != nil {
		tmpDB.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmpDB.Exec(`INSERT INTO meta(key, value) VALUES ('chunk_size', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprintf("%d", chunkSize)); err != nil {
		tmpDB.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := s.db.Close(); err != nil {
		tmpDB.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("close original before swap: %w", err)
	}
	if err := tmpDB.Close(); err != nil {
		return fmt.Errorf("close rebuild target before swap: %w", err)
	}

	bakPath := s.path + ".bak"
	if err := os.Rename(s.path, bakPath); err != nil {
		// Original could not be moved aside; reopen it untouched and abort.
		db, reopenErr := openDB(s.path)
		if reopenErr == nil {
			s.db = db
		}
		os.Remove(tmpPath)
		return fmt.Errorf("rename original aside: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		// Restore original; leave it exactly as it was.
		os.Rename(bakPath, s.path)
		db, _ := openDB(s.path)
		s.db = db
		return fmt.Errorf("rename rebuild target into place: %w", err)
	}

	os.Remove(bakPath)
	os.Remove(bakPath + "-wal")
	os.Remove(bakPath + "-shm")
	os.Remove(s.path + "-wal")
	os.Remove(s.path + "-shm")

	db, err := openDB(s.path)
	if err != nil {
		return fmt.Errorf("reopen rebuilt database: %w", err)
	}
	s.db = db
	s.chunkSize = chunkSize
	return nil
}

// rebuildInPlace drops and recreates the schema without a file swap, used
// for in-memory stores where there is no sibling file to rename.
func (s *Store) rebuildInPlace(chunkSize int) error {
	drop := `
	DROP TABLE IF EXISTS files;
	DROP TABLE IF EXISTS chunks;
	DROP TABLE IF EXISTS chunks_fts;
	DROP TABLE IF EXISTS chunks_vec;
	`
	if _, err := s.db.Exec(drop); err != nil {
		return err
	}
	if err := s.initSchema(); err != nil {
		return err
	}
	if err := s.setMeta("schema_version", fmt.Sprintf("%d", SchemaVersion)); err != nil {
		return err
	}
	if err := s.setMeta("chunk_size", fmt.Sprintf("%d", chunkSize)); err != nil {
		return err
	}
	s.chunkSize = chunkSize
	return nil
}

func copyEmbeddingCache(src, dst *sql.DB) error {
	rows, err := src.Query(`SELECT hash, embedding, updated_at FROM embedding_cache`)
	if err != nil {
		return err
	}
	defer rows.Close()

	tx, err := dst.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO embedding_cache(hash, embedding, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for rows.Next() {
		var hash string
		var embedding []byte
		var updatedAt int64
		if err := rows.Scan(&hash, &embedding, &updatedAt); err != nil {
			continue
		}
		if _, err := stmt.Exec(hash, embedding, updatedAt); err != nil {
			continue
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return tx.Commit()
}

// ChunkSize returns the chunk-size hint the store was opened with.
func (s *Store) ChunkSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunkSize
}

// Close releases the database handle and the ownership lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Close()
	s.lock.Unlock()
	return err
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
