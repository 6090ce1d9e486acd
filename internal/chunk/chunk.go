package chunk

import "strings"

// New splits text into chunks using the strategy for ext (a lowercased file
// extension, e.g. ".md"); any extension not recognized below falls back to
// the markdown/text sliding window. chunkSize sets the sliding window's
// target token count and, for the non-markdown strategies, the oversize
// split threshold (chunkSize*4 characters). Blank chunks and blank files
// never produce output.
func New(ext string, text string, chunkSize int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var raw []Chunk
	markdown := false

	switch strings.ToLower(ext) {
	case ".json":
		raw = chunkJSON(text)
	case ".jsonl":
		raw = chunkJSONL(text)
	case ".yaml", ".yml":
		raw = chunkYAML(text)
	default:
		raw = chunkSlidingWindow(text, chunkSize)
		markdown = true
	}

	if !markdown {
		raw = splitOversize(raw, chunkSize*4)
	}

	return finalize(raw)
}

// splitOversize breaks any chunk whose text exceeds maxChars into
// consecutive line-wise slices of size <= maxChars, preserving line numbers.
// Applies to the non-markdown strategies only; the sliding window already
// respects maxChars by construction.
func splitOversize(chunks []Chunk, maxChars int) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Text) <= maxChars {
			out = append(out, c)
			continue
		}

		lines := strings.Split(c.Text, "\n")
		var buf []string
		bufChars := 0
		startLine := c.StartLine
		lineNo := c.StartLine

		flush := func(endLine int) {
			if len(buf) == 0 {
				return
			}
			out = append(out, Chunk{StartLine: startLine, EndLine: endLine, Text: strings.Join(buf, "\n")})
		}

		for _, line := range lines {
			cost := len(line) + 1
			if len(buf) > 0 && bufChars+cost > maxChars {
				flush(lineNo - 1)
				buf = nil
				bufChars = 0
				startLine = lineNo
			}
			buf = append(buf, line)
			bufChars += cost
			lineNo++
		}
		flush(lineNo - 1)
	}
	return out
}

// finalize drops blank chunks and stamps each surviving chunk's text hash.
func finalize(chunks []Chunk) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		c.Hash = Hash(c.Text)
		out = append(out, c)
	}
	return out
}
