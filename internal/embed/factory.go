package embed

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
)

// Build constructs the configured provider, falling back to the static
// hash embedder if the requested provider cannot be reached. It never
// returns an error: an unreachable Ollama daemon is a normal runtime state,
// not a fatal one, and the static embedder keeps the system degraded-but-usable.
func Build(ctx context.Context, cfg config.EmbeddingConfig) Embedder {
	provider := strings.ToLower(cfg.Provider)
	if provider == "static" {
		return NewCachedEmbedder(NewStaticEmbedder768(), DefaultCacheSize)
	}

	ollama, err := NewOllamaEmbedder(ctx, OllamaConfig{Host: cfg.OllamaHost})
	if err != nil {
		slog.Warn("embedder_provider_unavailable", "provider", "ollama", "host", cfg.OllamaHost, "error", err)
		return NewCachedEmbedder(NewStaticEmbedder768(), DefaultCacheSize)
	}
	return NewCachedEmbedder(ollama, DefaultCacheSize)
}

// LazyEmbedder defers construction (and the network probe it may require)
// until the first call, and caches a failed probe so repeated callers don't
// re-attempt a dead connection on every request. It is the process-global
// embedder resource: exactly one is built and held for process lifetime.
type LazyEmbedder struct {
	once  sync.Once
	build func() Embedder

	callMu sync.Mutex // serializes inference against the underlying model/connection
	inner  Embedder
}

// NewLazy wraps build so it runs at most once, on first use.
func NewLazy(build func() Embedder) *LazyEmbedder {
	return &LazyEmbedder{build: build}
}

func (l *LazyEmbedder) ensure() Embedder {
	l.once.Do(func() {
		l.inner = l.build()
	})
	return l.inner
}

func (l *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	l.callMu.Lock()
	defer l.callMu.Unlock()
	return l.ensure().Embed(ctx, text)
}

func (l *LazyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	l.callMu.Lock()
	defer l.callMu.Unlock()
	return l.ensure().EmbedBatch(ctx, texts)
}

func (l *LazyEmbedder) Dimensions() int { return Dimensions }

func (l *LazyEmbedder) ModelName() string {
	if l.inner == nil {
		return "unresolved"
	}
	return l.inner.ModelName()
}

func (l *LazyEmbedder) Available(ctx context.Context) bool {
	return l.ensure().Available(ctx)
}

func (l *LazyEmbedder) Close() error {
	if l.inner == nil {
		return nil
	}
	return l.inner.Close()
}

var _ Embedder = (*LazyEmbedder)(nil)
