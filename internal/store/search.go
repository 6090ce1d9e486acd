package store

import (
	"context"
	"database/sql"
	"fmt"
)

// FTSHit is one row from the lexical (FTS5) search path.
type FTSHit struct {
	Chunk
	Rank float64 // raw bm25() value; negative, lower is better
}

// SearchFTS runs matchExpr against chunks_fts and joins back to chunks for
// the full row. Results are ordered best-first (most negative rank).
func (s *Store) SearchFTS(ctx context.Context, matchExpr string, limit int) ([]FTSHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.path, c.source, c.start_line, c.end_line, c.hash, c.text, c.updated_at, c.access_count,
		       bm25(chunks_fts) as rank
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.id
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, matchExpr, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FTSHit
	for rows.Next() {
		var h FTSHit
		if err := rows.Scan(&h.ID, &h.Path, &h.Source, &h.StartLine, &h.EndLine, &h.Hash, &h.Text, &h.UpdatedAt, &h.AccessCount, &h.Rank); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// VecHit is one row from the vector search path, joined back to its chunk.
type VecHit struct {
	Chunk
	Distance float32
}

// SearchVector runs an approximate nearest-neighbor query against the
// in-memory HNSW graph, then joins the results back to their chunk rows.
func (s *Store) SearchVector(ctx context.Context, query []float32, k int) ([]VecHit, error) {
	if len(query) != Dimensions {
		return nil, ErrDimensionMismatch{Expected: Dimensions, Got: len(query)}
	}

	s.mu.RLock()
	hits := s.vec.search(query, k)
	s.mu.RUnlock()

	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	distByID := make(map[string]float32, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		distByID[h.ID] = h.Distance
	}

	chunksByID, err := s.chunksByIDs(ids)
	if err != nil {
		return nil, err
	}

	out := make([]VecHit, 0, len(hits))
	for _, h := range hits {
		c, ok := chunksByID[h.ID]
		if !ok {
			continue // chunk was deleted after the vector was indexed; skip
		}
		out = append(out, VecHit{Chunk: c, Distance: distByID[h.ID]})
	}
	return out, nil
}

func (s *Store) chunksByIDs(ids []string) (map[string]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
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
	query := fmt.Sprintf(`
		SELECT id, path, source, start_line, end_line, hash, text, updated_at, access_count
		FROM chunks WHERE id IN (%s)
	`, placeholders)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Chunk, len(ids))
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Path, &c.Source, &c.StartLine, &c.EndLine, &c.Hash, &c.Text, &c.UpdatedAt, &c.AccessCount); err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// SearchSubstring runs the LIKE-based fallback scan used when both the FTS
// and vector paths are unavailable or empty. pattern must already be
// escaped and wrapped with '%'.
func (s *Store) SearchSubstring(ctx context.Context, pattern string, limit int) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, source, start_line, end_line, hash, text, updated_at, access_count
		FROM chunks
		WHERE text LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT ?
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Path, &c.Source, &c.StartLine, &c.EndLine, &c.Hash, &c.Text, &c.UpdatedAt, &c.AccessCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AccessKey identifies a result slot for access-count bookkeeping.
type AccessKey struct {
	Path      string
	Source    string
	StartLine int
}

// BumpAccessCounts increments access_count for every chunk matching one of
// keys (by path+source+start_line) in a single transaction, and returns the
// resulting counts so the caller can apply the access-boost rescore.
func (s *Store) BumpAccessCounts(ctx context.Context, keys []AccessKey) (map[AccessKey]int, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[AccessKey]int, len(keys))

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		updateStmt, err := tx.PrepareContext(ctx, `
			UPDATE chunks SET access_count = access_count + 1
			WHERE path = ? AND source = ? AND start_line = ?
		`)
		if err != nil {
			return err
		}
		defer updateStmt.Close()

		selectStmt, err := tx.PrepareContext(ctx, `
			SELECT access_count FROM chunks WHERE path = ? AND source = ? AND start_line = ? LIMIT 1
		`)
		if err != nil {
			return err
		}
		defer selectStmt.Close()

		for _, k := range keys {
			if _, err := updateStmt.ExecContext(ctx, k.Path, k.Source, k.StartLine); err != nil {
				return err
			}
			var count int
			if err := selectStmt.QueryRowContext(ctx, k.Path, k.Source, k.StartLine).Scan(&count); err != nil && err != sql.ErrNoRows {
				return err
			}
			counts[k] = count
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
