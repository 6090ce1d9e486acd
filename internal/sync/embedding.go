package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/XingxingLi2017/memory-mcp/internal/embed"
	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

// EmbeddingSyncer drives the vector-index catch-up pass: embedding chunks
// that the reconciliation sync created but did not vectorize. Grounded on
// the teacher's BackgroundIndexer fire-and-forget shape (running guard,
// stopCh/doneCh lifecycle), generalized here to a fixed-size batch loop
// instead of a one-shot full-project index.
type EmbeddingSyncer struct {
	store    *store.Store
	embedder embed.Embedder

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	err     error
}

// NewEmbeddingSyncer creates an EmbeddingSyncer.
func NewEmbeddingSyncer(st *store.Store, embedder embed.Embedder) *EmbeddingSyncer {
	return &EmbeddingSyncer{store: st, embedder: embedder}
}

// Start runs the embedding sync loop in a background goroutine. Non-blocking;
// a call while already running is a no-op. Callers must arrange for ctx to
// be cancelled at process shutdown and join via Wait.
func (s *EmbeddingSyncer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

func (s *EmbeddingSyncer) run(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.runLoop(ctx)
	if err != nil {
		slog.Warn("embedding_sync_stopped", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	if n, gcErr := s.store.GCEmbeddingCache(ctx); gcErr != nil {
		slog.Warn("embedding_cache_gc_failed", slog.String("error", gcErr.Error()))
	} else if n > 0 {
		slog.Info("embedding_cache_gc", slog.Int("removed", n))
	}
}

// runLoop repeatedly embeds up to embeddingBatchSize un-vectorized chunks
// per iteration until none remain or a batch embed fails.
func (s *EmbeddingSyncer) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunks, err := s.store.ChunksWithoutVector(embeddingBatchSize)
		if err != nil {
			return fmt.Errorf("list unvectorized chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		var hitWrites []store.EmbeddingWrite
		var missChunks []store.Chunk
		var missTexts []string

		for _, c := range chunks {
			vec, hit, err := s.store.EmbeddingCacheGet(c.Hash)
			if err != nil {
				return fmt.Errorf("embedding cache lookup: %w", err)
			}
			if hit {
				hitWrites = append(hitWrites, store.EmbeddingWrite{ChunkID: c.ID, TextHash: c.Hash, Vector: vec})
				continue
			}
			missChunks = append(missChunks, c)
			missTexts = append(missTexts, c.Text)
		}

		if len(hitWrites) > 0 {
			if err := s.store.InsertEmbeddings(ctx, hitWrites); err != nil {
				return fmt.Errorf("insert cache-hit embeddings: %w", err)
			}
		}

		if len(missTexts) == 0 {
			continue
		}

		vecs, err := s.embedder.EmbedBatch(ctx, missTexts)
		if err != nil {
			slog.Warn("embedding_sync_batch_failed",
				slog.Int("deficit", len(missTexts)),
				slog.String("error", err.Error()))
			return err
		}
		if len(vecs) != len(missChunks) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missChunks))
		}

		missWrites := make([]store.EmbeddingWrite, len(missChunks))
		for i, c := range missChunks {
			missWrites[i] = store.EmbeddingWrite{ChunkID: c.ID, TextHash: c.Hash, Vector: vecs[i]}
		}
		if err := s.store.InsertEmbeddings(ctx, missWrites); err != nil {
			return fmt.Errorf("insert batch embeddings: %w", err)
		}
	}
}

// Stop signals the loop to stop and waits for it to finish. Safe to call
// when not running.
func (s *EmbeddingSyncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Wait blocks until the loop completes (naturally or via Stop) and returns
// its terminal error, if any.
func (s *EmbeddingSyncer) Wait() error {
	s.mu.Lock()
	doneCh := s.doneCh
	s.mu.Unlock()
	if doneCh == nil {
		return nil
	}
	<-doneCh
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
