// Package chunk splits file content into the line-bounded, content-addressed
// units the Store persists and the Search engine ranks. Strategy is chosen
// by file extension: markdown/text uses a sliding window with heading
// breaks, JSON/JSONL/YAML use format-aware key/element/document splitting.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is a contiguous, 1-based inclusive line span of a file's text.
type Chunk struct {
	StartLine int
	EndLine   int
	Text      string
	Hash      string // SHA-256 hex of Text
}

// Hash returns the SHA-256 hex digest of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ID returns the content-addressable chunk identifier: a chunk's identity
// survives as long as its (source, path, line span, text) are unchanged,
// so unrelated edits elsewhere in the file don't force a re-embed.
func ID(source, path string, startLine, endLine int, textHash string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d:%d:%s", source, path, startLine, endLine, textHash)))
	return hex.EncodeToString(sum[:])
}
