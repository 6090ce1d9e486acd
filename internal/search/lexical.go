package search

import (
	"context"
	"strings"

	"github.com/XingxingLi2017/memory-mcp/internal/segment"
	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

// buildMatchExpr tokenizes query with the Segmenter and joins the quoted
// tokens with OR, so the FTS5 query matches any token. Quotes embedded in a
// token are removed rather than escaped, since FTS5's quoting has no escape
// character of its own.
func buildMatchExpr(query string) string {
	tokens := segment.SegmentForQuery(query)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ReplaceAll(t, `"`, "")
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// lexicalCandidates runs the FTS5 path: tokenize, match, rank-convert,
// filter by minScore and the allowed-path set.
func (e *Engine) lexicalCandidates(ctx context.Context, query string, limit int, minScore float64, allowed map[string]bool) ([]store.FTSHit, []float64, error) {
	matchExpr := buildMatchExpr(query)
	if matchExpr == "" {
		return nil, nil, nil
	}

	hits, err := e.store.SearchFTS(ctx, matchExpr, limit)
	if err != nil {
		return nil, nil, err
	}

	var keptHits []store.FTSHit
	var keptScores []float64
	for _, h := range hits {
		if allowed != nil && !allowed[h.Path] {
			continue
		}
		score := bm25ToScore(h.Rank)
		if score < minScore {
			continue
		}
		keptHits = append(keptHits, h)
		keptScores = append(keptScores, score)
	}
	return keptHits, keptScores, nil
}
