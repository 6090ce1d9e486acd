package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FileHash returns the stored fingerprint for (path, source), and whether a
// record exists at all.
func (s *Store) FileHash(path, source string) (hash string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRow(`SELECT hash FROM files WHERE path = ? AND source = ?`, path, source).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// ListFiles returns every file record for source.
func (s *Store) ListFiles(source string) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT path, source, hash, mtime, size FROM files WHERE source = ?`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Path, &f.Source, &f.Hash, &f.Mtime, &f.Size); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// LexicalEntry is a pre-segmented chunk ready for FTS insertion.
type LexicalEntry struct {
	ChunkID         string
	SegmentedText   string
}

// ReindexFile atomically replaces everything derived from (file.Path,
// file.Source): deletes old chunks/FTS rows/vector entries, upserts the file
// row, and inserts the new chunks (and lexical entries, when ftsAvailable).
func (s *Store) ReindexFile(ctx context.Context, file File, chunks []Chunk, lexical []LexicalEntry, ftsAvailable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldIDs, err := s.chunkIDsForFileLocked(file.Path, file.Source)
	if err != nil {
		return err
	}

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ? AND source = ?`, file.Path, file.Source); err != nil {
			return fmt.Errorf("delete old chunks: %w", err)
		}
		if ftsAvailable {
			if err := deleteFTSByIDs(ctx, tx, oldIDs); err != nil {
				return err
			}
		}
		if err := deleteVecByIDs(ctx, tx, oldIDs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files(path, source, hash, mtime, size) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(path, source) DO UPDATE SET hash = excluded.hash, mtime = excluded.mtime, size = excluded.size
		`, file.Path, file.Source, file.Hash, file.Mtime, file.Size); err != nil {
			return fmt.Errorf("upsert file: %w", err)
		}

		chunkStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks(id, path, source, start_line, end_line, hash, text, updated_at, access_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
		`)
		if err != nil {
			return err
		}
		defer chunkStmt.Close()

		now := time.Now().UnixMilli()
		for _, c := range chunks {
			if _, err := chunkStmt.ExecContext(ctx, c.ID, c.Path, c.Source, c.StartLine, c.EndLine, c.Hash, c.Text, now); err != nil {
				return fmt.Errorf("insert chunk %s: %w", c.ID, err)
			}
		}

		if ftsAvailable && len(lexical) > 0 {
			ftsStmt, err := tx.PrepareContext(ctx, `
				INSERT INTO chunks_fts(id, path, source, start_line, end_line, text) VALUES (?, ?, ?, ?, ?, ?)
			`)
			if err != nil {
				return err
			}
			defer ftsStmt.Close()

			byID := make(map[string]Chunk, len(chunks))
			for _, c := range chunks {
				byID[c.ID] = c
			}
			for _, le := range lexical {
				c, ok := byID[le.ChunkID]
				if !ok {
					continue
				}
				if _, err := ftsStmt.ExecContext(ctx, c.ID, c.Path, c.Source, c.StartLine, c.EndLine, le.SegmentedText); err != nil {
					return fmt.Errorf("insert fts row %s: %w", c.ID, err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.vec.remove(oldIDs)
	return nil
}

func (s *Store) chunkIDsForFileLocked(path, source string) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM chunks WHERE path = ? AND source = ?`, path, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteFilesNotIn removes every file (and its chunks/FTS/vector rows) in
// source whose path is absent from active. Returns the deleted paths.
func (s *Store) DeleteFilesNotIn(ctx context.Context, source string, active map[string]bool, ftsAvailable bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT path FROM files WHERE source = ?`, source)
	if err != nil {
		return nil, err
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return nil, err
		}
		if !active[path] {
			stale = append(stale, path)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(stale) == 0 {
		return nil, nil
	}

	var allChunkIDs []string
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, path := range stale {
			ids, err := chunkIDsTx(ctx, tx, path, source)
			if err != nil {
				return err
			}
			allChunkIDs = append(allChunkIDs, ids...)

			if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ? AND source = ?`, path, source); err != nil {
				return err
			}
			if ftsAvailable {
				if err := deleteFTSByIDs(ctx, tx, ids); err != nil {
					return err
				}
			}
			if err := deleteVecByIDs(ctx, tx, ids); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ? AND source = ?`, path, source); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.vec.remove(allChunkIDs)
	return stale, nil
}

func chunkIDsTx(ctx context.Context, tx *sql.Tx, path, source string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE path = ? AND source = ?`, path, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func deleteFTSByIDs(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM chunks_fts WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// deleteVecByIDs prefers a single IN(...) delete, falling back to per-row
// deletes if the batch statement fails for any reason.
func deleteVecByIDs(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM chunks_vec WHERE id IN (%s)`, placeholders)
	if _, err := tx.ExecContext(ctx, query, args...); err == nil {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM chunks_vec WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes the store's contents for memory_status.
func (s *Store) Stats() (IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st IndexStats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&st.Files); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files WHERE source = 'memory'`).Scan(&st.MemoryFiles); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files WHERE source = 'sessions'`).Scan(&st.SessionFiles); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&st.Chunks); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks_vec`).Scan(&st.EmbeddedChunks); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM embedding_cache`).Scan(&st.EmbeddingCache); err != nil {
		return st, err
	}
	return st, nil
}

// FilesWithManyChunks returns up to limit (path, count) pairs for files
// whose chunk count exceeds threshold, ordered by count descending.
func (s *Store) FilesWithManyChunks(threshold, limit int) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT path, COUNT(*) as c FROM chunks GROUP BY path, source HAVING c > ? ORDER BY c DESC LIMIT ?
	`, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var path string
		var count int
		if err := rows.Scan(&path, &count); err != nil {
			return nil, err
		}
		out[path] = count
	}
	return out, rows.Err()
}

// DuplicateHashes returns up to limit chunk-text hashes that appear across
// two or more distinct paths, mapped to their distinct path count.
func (s *Store) DuplicateHashes(limit int) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT hash, COUNT(DISTINCT path) as c FROM chunks GROUP BY hash HAVING c >= 2 ORDER BY c DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var hash string
		var count int
		if err := rows.Scan(&hash, &count); err != nil {
			return nil, err
		}
		out[hash] = count
	}
	return out, rows.Err()
}

// FileMtimesInRange returns the set of paths (across both sources) whose
// stored mtime falls within [after, before] (epoch ms). A zero bound means
// unbounded on that side.
func (s *Store) FileMtimesInRange(after, before int64) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT path FROM files WHERE mtime >= ? AND mtime <= ?`
	if before == 0 {
		before = int64(1) << 62
	}
	rows, err := s.db.Query(query, after, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		out[path] = true
	}
	return out, rows.Err()
}
