// Package scanner discovers the files memory-mcp indexes: the workspace's
// memory notes and recent agent-session transcripts.
package scanner

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// realPathCacheSize bounds the real-path dedup cache so a very large
// memory/ tree with many hardlinks can't grow it without bound.
const realPathCacheSize = 10000

// Entry is one scannable unit: either a memory file read directly from
// disk, or a session transcript reconstructed from a host-specific JSONL
// format into a single plain-text document.
type Entry struct {
	Path    string // relative to the workspace root, '/' separators
	Source  string // "memory" or "sessions"
	Content string // UTF-8 text
	Hash    string // SHA-256 hex of Content
	Size    int64  // bytes
	Mtime   int64  // ms since epoch
}

// Scanner enumerates memory files and session transcripts.
type Scanner struct {
	seenRealPaths *lru.Cache[string, struct{}]
}

// New creates a Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, struct{}](realPathCacheSize)
	if err != nil {
		return nil, err
	}
	return &Scanner{seenRealPaths: cache}, nil
}
