package chunk

import (
	"regexp"
	"strings"
)

var (
	yamlDocSepRE = regexp.MustCompile(`^---\s*$`)
	yamlKeyRE    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*\s*:`)
)

// chunkYAML implements the YAML strategy: one chunk per `---`-delimited
// document when the file has two or more separators (dropping chunks whose
// non-separator body is blank); otherwise one chunk per top-level key span,
// falling back to a single whole-file chunk when there's at most one key.
func chunkYAML(text string) []Chunk {
	lines := strings.Split(text, "\n")

	var seps []int
	for i, l := range lines {
		if yamlDocSepRE.MatchString(l) {
			seps = append(seps, i)
		}
	}

	if len(seps) >= 2 {
		var chunks []Chunk
		for i, s := range seps {
			end := len(lines) - 1
			if i+1 < len(seps) {
				end = seps[i+1] - 1
			}
			body := lines[s : end+1]
			if strings.TrimSpace(strings.Join(body[1:], "\n")) == "" {
				continue
			}
			chunks = append(chunks, Chunk{StartLine: s + 1, EndLine: end + 1, Text: strings.Join(body, "\n")})
		}
		if len(chunks) > 0 {
			return chunks
		}
	}

	var starts []int
	for i, l := range lines {
		if yamlKeyRE.MatchString(l) {
			starts = append(starts, i)
		}
	}
	if len(starts) <= 1 {
		return []Chunk{wholeFile(text)}
	}

	chunks := make([]Chunk, 0, len(starts))
	for i, s := range starts {
		end := len(lines) - 1
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}
		chunks = append(chunks, Chunk{StartLine: s + 1, EndLine: end + 1, Text: strings.Join(lines[s:end+1], "\n")})
	}
	return chunks
}
