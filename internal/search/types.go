// Package search implements memory-mcp's hybrid Search Engine: a lexical
// path over the FTS5 index, a vector path over the in-memory HNSW graph,
// a fixed-weight min-max fusion of the two, a substring fallback when
// neither yields results, and a post-fusion access-count re-scoring pass.
package search

import (
	"github.com/XingxingLi2017/memory-mcp/internal/embed"
	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

// defaults mirror SPEC_FULL.md §4.7's preprocessing rules.
const (
	defaultTokenMax = 4096
	defaultMinScore = 0.01
	oversampleRatio = 3
)

// Options configures one Search call. Zero values take the documented
// defaults: TokenMax 4096, MinScore 0.01, MaxResults derived from TokenMax.
type Options struct {
	MaxResults int
	MinScore   float64
	TokenMax   int

	// After and Before are RFC3339 timestamps bounding the file's stored
	// mtime. Either may be empty to leave that bound open.
	After  string
	Before string
}

// Result is one ranked hit, ready for the MCP tool layer to serialize.
type Result struct {
	Path      string
	StartLine int
	EndLine   int
	Score     float64
	Snippet   string
	Source    string
}

// Engine runs hybrid search against a Store.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder
}

// New creates a search Engine.
func New(st *store.Store, embedder embed.Embedder) *Engine {
	return &Engine{store: st, embedder: embedder}
}
