package chunk

import (
	"encoding/json"
	"regexp"
	"strings"
)

var jsonKeyLineRE = regexp.MustCompile(`^\s*"([^"]*)"\s*:`)

// chunkJSON implements the JSON strategy: a single whole-file chunk when the
// text doesn't parse or its root is a scalar or a ≤1-element array;
// otherwise one chunk per top-level object key or array element, found by
// line-scanning brace/bracket depth rather than re-serializing the parsed
// value (so the original formatting and key order survive).
func chunkJSON(text string) []Chunk {
	var root any
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return []Chunk{wholeFile(text)}
	}

	switch v := root.(type) {
	case map[string]any:
		keys := make(map[string]bool, len(v))
		for k := range v {
			keys[k] = true
		}
		return chunkJSONObject(text, keys)
	case []any:
		if len(v) <= 1 {
			return []Chunk{wholeFile(text)}
		}
		return chunkJSONArray(text)
	default:
		return []Chunk{wholeFile(text)}
	}
}

func chunkJSONObject(text string, keys map[string]bool) []Chunk {
	lines := strings.Split(text, "\n")

	var starts []int
	tracker := &depthTracker{}
	for i, line := range lines {
		if tracker.depth == 1 {
			if m := jsonKeyLineRE.FindStringSubmatch(line); m != nil && keys[m[1]] {
				starts = append(starts, i)
			}
		}
		tracker.scan(line)
	}
	if len(starts) == 0 {
		return []Chunk{wholeFile(text)}
	}

	chunks := make([]Chunk, 0, len(starts))
	for i, start := range starts {
		end := len(lines) - 1
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}

		body := append([]string(nil), lines[start:end+1]...)
		last := len(body) - 1
		trimmed := strings.TrimRight(body[last], " \t")
		body[last] = strings.TrimSuffix(trimmed, ",")

		chunks = append(chunks, Chunk{StartLine: start + 1, EndLine: end + 1, Text: strings.Join(body, "\n")})
	}
	return chunks
}

func chunkJSONArray(text string) []Chunk {
	lines := strings.Split(text, "\n")

	tracker := &depthTracker{}
	var chunks []Chunk
	start := -1
	for i, line := range lines {
		before := tracker.depth
		tracker.scan(line)
		after := tracker.depth

		switch {
		case start == -1 && before == 1 && after >= 2:
			start = i
		case start != -1 && before >= 2 && after == 1:
			chunks = append(chunks, Chunk{StartLine: start + 1, EndLine: i + 1, Text: strings.Join(lines[start:i+1], "\n")})
			start = -1
		}
	}
	if len(chunks) == 0 {
		return []Chunk{wholeFile(text)}
	}
	return chunks
}

// chunkJSONL implements the JSONL strategy: one chunk per non-empty
// trimmed line.
func chunkJSONL(text string) []Chunk {
	var chunks []Chunk
	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		chunks = append(chunks, Chunk{StartLine: i + 1, EndLine: i + 1, Text: trimmed})
	}
	return chunks
}

func wholeFile(text string) Chunk {
	lines := strings.Count(text, "\n") + 1
	if strings.HasSuffix(text, "\n") {
		lines--
	}
	if lines < 1 {
		lines = 1
	}
	return Chunk{StartLine: 1, EndLine: lines, Text: text}
}
