package store

import (
	"context"
	"database/sql"
	"time"
)

// ChunksWithoutVector returns up to limit chunks that have no chunks_vec row yet.
func (s *Store) ChunksWithoutVector(limit int) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT c.id, c.path, c.source, c.start_line, c.end_line, c.hash, c.text, c.updated_at, c.access_count
		FROM chunks c
		LEFT JOIN chunks_vec v ON v.id = c.id
		WHERE v.id IS NULL
		LIMIT ?
	`, limit)
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

// EmbeddingCacheGet looks up a cached vector by the text's SHA-256 hash.
func (s *Store) EmbeddingCacheGet(hash string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob []byte
	err := s.db.QueryRow(`SELECT embedding FROM embedding_cache WHERE hash = ?`, hash).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return decodeVector(blob), true, nil
}

// EmbeddingWrite is one chunk's resolved embedding, to be stored in both
// chunks_vec and embedding_cache.
type EmbeddingWrite struct {
	ChunkID  string
	TextHash string
	Vector   []float32
}

// InsertEmbeddings writes chunks_vec and embedding_cache rows for writes in
// a single transaction, then updates the in-memory vector index.
func (s *Store) InsertEmbeddings(ctx context.Context, writes []EmbeddingWrite) error {
	if len(writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		if len(w.Vector) != Dimensions {
			return ErrDimensionMismatch{Expected: Dimensions, Got: len(w.Vector)}
		}
	}

	now := time.Now().UnixMilli()

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		vecStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks_vec(id, embedding) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding
		`)
		if err != nil {
			return err
		}
		defer vecStmt.Close()

		cacheStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO embedding_cache(hash, embedding, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(hash) DO UPDATE SET embedding = excluded.embedding, updated_at = excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer cacheStmt.Close()

		for _, w := range writes {
			blob := encodeVector(w.Vector)
			if _, err := vecStmt.ExecContext(ctx, w.ChunkID, blob); err != nil {
				return err
			}
			if _, err := cacheStmt.ExecContext(ctx, w.TextHash, blob, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, w := range writes {
		s.vec.add(w.ChunkID, w.Vector)
	}
	return nil
}

// GCEmbeddingCache removes embedding_cache rows whose hash is not referenced
// by any current chunk, returning the number removed.
func (s *Store) GCEmbeddingCache(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM embedding_cache
		WHERE hash NOT IN (SELECT DISTINCT hash FROM chunks)
	`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
