package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultOllamaHost is the local Ollama daemon's default listen address.
	DefaultOllamaHost = "http://127.0.0.1:11434"

	// DefaultOllamaModel is the embedding model requested when the config
	// does not name one explicitly.
	DefaultOllamaModel = "nomic-embed-text"
)

// OllamaConfig configures the Ollama HTTP embedder.
type OllamaConfig struct {
	Host            string
	Model           string
	BatchSize       int
	Timeout         time.Duration
	ConnectTimeout  time.Duration
	MaxRetries      int
	SkipHealthCheck bool // set in tests to avoid a real network probe
}

func (c OllamaConfig) withDefaults() OllamaConfig {
	if c.Host == "" {
		c.Host = DefaultOllamaHost
	}
	if c.Model == "" {
		c.Model = DefaultOllamaModel
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder talks to a local Ollama daemon's /api/embed endpoint.
type OllamaEmbedder struct {
	client *http.Client
	config OllamaConfig

	mu        sync.RWMutex
	closed    bool
	available bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder constructs an embedder bound to cfg.Host/cfg.Model and,
// unless SkipHealthCheck is set, probes availability once up front.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	cfg = cfg.withDefaults()

	e := &OllamaEmbedder{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}

	if cfg.SkipHealthCheck {
		e.available = true
		return e, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if _, err := e.embedOne(checkCtx, "ok"); err != nil {
		return nil, fmt.Errorf("ollama health check at %s: %w", cfg.Host, err)
	}
	e.available = true
	return e, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embed: ollama embedder is closed")
	}

	var out []float32
	err := withRetry(ctx, retryConfig{MaxRetries: e.config.MaxRetries, InitialDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second, Multiplier: 2.0}, func() error {
		v, err := e.embedOne(ctx, text)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (e *OllamaEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.request(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("ollama returned %d embeddings for 1 input", len(vecs))
	}
	return normalizeVector(vecs[0]), nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embed: ollama embedder is closed")
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var vecs [][]float32
		err := withRetry(ctx, retryConfig{MaxRetries: e.config.MaxRetries, InitialDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second, Multiplier: 2.0}, func() error {
			v, err := e.requestMany(ctx, batch)
			if err != nil {
				return err
			}
			vecs = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		results = append(results, vecs...)
	}
	return results, nil
}

func (e *OllamaEmbedder) request(ctx context.Context, text string) ([][]float32, error) {
	return e.doRequest(ctx, text)
}

func (e *OllamaEmbedder) requestMany(ctx context.Context, texts []string) ([][]float32, error) {
	return e.doRequest(ctx, texts)
}

func (e *OllamaEmbedder) doRequest(ctx context.Context, input any) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: input})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}

	out := make([][]float32, len(parsed.Embeddings))
	for i, row := range parsed.Embeddings {
		if len(row) != Dimensions {
			return nil, fmt.Errorf("model %q returned %d-dimensional vectors, want %d", e.config.Model, len(row), Dimensions)
		}
		vec := make([]float32, len(row))
		for j, f := range row {
			vec[j] = float32(f)
		}
		out[i] = normalizeVector(vec)
	}
	return out, nil
}

func (e *OllamaEmbedder) Dimensions() int { return Dimensions }

func (e *OllamaEmbedder) ModelName() string { return e.config.Model }

func (e *OllamaEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.available && !e.closed
}

func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}
