package search

import (
	"context"
	"strings"
)

// escapeLike escapes SQL LIKE metacharacters using '\' as the escape char,
// matching the ESCAPE '\' clause SearchSubstring's query declares.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type candidate struct {
	key       resultKey
	source    string
	endLine   int
	text      string
	score     float64
}

// substringCandidates runs the LIKE fallback used when both the lexical and
// vector paths come back empty. Results are ranked purely by recency (the
// store orders by updated_at DESC), so the score is a simple 1/(1+i) decay.
func (e *Engine) substringCandidates(ctx context.Context, query string, limit int, allowed map[string]bool) ([]candidate, error) {
	pattern := "%" + escapeLike(query) + "%"
	chunks, err := e.store.SearchSubstring(ctx, pattern, limit)
	if err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(chunks))
	for i, c := range chunks {
		if allowed != nil && !allowed[c.Path] {
			continue
		}
		out = append(out, candidate{
			key:    resultKey{path: c.Path, startLine: c.StartLine},
			source: c.Source,
			endLine: c.EndLine,
			text:   c.Text,
			score:  1 / float64(1+i),
		})
	}
	return out, nil
}
