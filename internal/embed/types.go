// Package embed provides the Embedder capability: turning text into a
// fixed-dimension vector. The Store treats a wrong-length vector as a fatal
// error, so every implementation here returns exactly Dimensions floats,
// L2-normalized.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// Dimensions is the fixed embedding length the rest of the system assumes.
	Dimensions = 768

	// DefaultBatchSize bounds how many texts NewOllamaEmbedder sends per request.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single embedding HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds the initial availability probe.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultMaxRetries is the number of retries for a transient embedding failure.
	DefaultMaxRetries = 3

	// DefaultCacheSize is the default LRU size for CachedEmbedder.
	DefaultCacheSize = 1000
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	// A hard failure fails the whole batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the embedding length this embedder produces.
	Dimensions() int

	// ModelName identifies the underlying model, for status reporting.
	ModelName() string

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases any held resources (connections, goroutines).
	Close() error
}

// normalizeVector scales v to unit length; a zero vector is returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
