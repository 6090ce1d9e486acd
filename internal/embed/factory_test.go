package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
	"github.com/stretchr/testify/require"
)

func TestBuildFallsBackToStaticWhenOllamaUnreachable(t *testing.T) {
	e := Build(context.Background(), config.EmbeddingConfig{Provider: "ollama", OllamaHost: "http://127.0.0.1:1"})
	defer e.Close()

	require.Equal(t, "static-hash-768", e.(*CachedEmbedder).ModelName())
}

func TestBuildStaticProvider(t *testing.T) {
	e := Build(context.Background(), config.EmbeddingConfig{Provider: "static"})
	defer e.Close()
	require.Equal(t, "static-hash-768", e.ModelName())
}

func TestLazyEmbedderBuildsOnlyOnce(t *testing.T) {
	var calls int32
	lazy := NewLazy(func() Embedder {
		atomic.AddInt32(&calls, 1)
		return NewStaticEmbedder768()
	})

	_, err := lazy.Embed(context.Background(), "a")
	require.NoError(t, err)
	_, err = lazy.Embed(context.Background(), "b")
	require.NoError(t, err)
	require.True(t, lazy.Available(context.Background()))

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
