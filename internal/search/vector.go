package search

import (
	"context"

	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

// vectorCandidates embeds query and runs the HNSW nearest-neighbor path,
// filtering by minScore and the allowed-path set the same way the lexical
// path does.
func (e *Engine) vectorCandidates(ctx context.Context, query string, limit int, minScore float64, allowed map[string]bool) ([]store.VecHit, []float64, error) {
	if e.embedder == nil || !e.embedder.Available(ctx) {
		return nil, nil, nil
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	hits, err := e.store.SearchVector(ctx, vec, limit)
	if err != nil {
		return nil, nil, err
	}

	var keptHits []store.VecHit
	var keptScores []float64
	for _, h := range hits {
		if allowed != nil && !allowed[h.Path] {
			continue
		}
		score := distanceToScore(h.Distance)
		if score < minScore {
			continue
		}
		keptHits = append(keptHits, h)
		keptScores = append(keptScores, score)
	}
	return keptHits, keptScores, nil
}
