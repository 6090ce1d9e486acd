package search

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

// resolveOptions fills in zero-valued Options fields with their documented
// defaults, per SPEC_FULL.md §4.7's preprocessing rules.
func resolveOptions(opts Options) Options {
	if opts.TokenMax <= 0 {
		opts.TokenMax = defaultTokenMax
	}
	if opts.MaxResults <= 0 {
		derived := opts.TokenMax / (200 + 30)
		opts.MaxResults = int(clamp(1, 20, float64(derived)))
	}
	if opts.MinScore <= 0 {
		opts.MinScore = defaultMinScore
	}
	return opts
}

// allowedPaths resolves the After/Before RFC3339 bounds into the set of
// paths whose stored file mtime falls within range. A nil return means no
// time filtering is in effect.
func (e *Engine) allowedPaths(opts Options) (map[string]bool, error) {
	if opts.After == "" && opts.Before == "" {
		return nil, nil
	}

	var afterMs, beforeMs int64
	if opts.After != "" {
		t, err := time.Parse(time.RFC3339, opts.After)
		if err != nil {
			return nil, err
		}
		afterMs = t.UnixMilli()
	}
	if opts.Before != "" {
		t, err := time.Parse(time.RFC3339, opts.Before)
		if err != nil {
			return nil, err
		}
		beforeMs = t.UnixMilli()
	}
	return e.store.FileMtimesInRange(afterMs, beforeMs)
}

// Search runs the hybrid lexical+vector search pipeline: tokenized FTS5 and
// embedded-vector paths run concurrently, fuse via a fixed 0.5/0.5 min-max
// weighting keyed by (path, startLine), fall back to a substring scan when
// both paths are empty, and finish with an access-count re-scoring pass
// over the final, sliced result set.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	opts = resolveOptions(opts)

	allowed, err := e.allowedPaths(opts)
	if err != nil {
		return nil, err
	}

	oversample := opts.MaxResults * oversampleRatio

	var lexHits []store.FTSHit
	var lexScores []float64
	var vecHits []store.VecHit
	var vecScores []float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexHits, lexScores, err = e.lexicalCandidates(gctx, query, oversample, opts.MinScore, allowed)
		return err
	})
	g.Go(func() error {
		var err error
		vecHits, vecScores, err = e.vectorCandidates(gctx, query, oversample, opts.MinScore, allowed)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lexical := make(map[resultKey]float64, len(lexHits))
	vector := make(map[resultKey]float64, len(vecHits))
	meta := make(map[resultKey]candidate, len(lexHits)+len(vecHits))

	for i, h := range lexHits {
		k := resultKey{path: h.Path, startLine: h.StartLine}
		if existing, ok := lexical[k]; !ok || lexScores[i] > existing {
			lexical[k] = lexScores[i]
		}
		meta[k] = candidate{key: k, source: h.Source, endLine: h.EndLine, text: h.Text}
	}
	for i, h := range vecHits {
		k := resultKey{path: h.Path, startLine: h.StartLine}
		if existing, ok := vector[k]; !ok || vecScores[i] > existing {
			vector[k] = vecScores[i]
		}
		if _, ok := meta[k]; !ok {
			meta[k] = candidate{key: k, source: h.Source, endLine: h.EndLine, text: h.Text}
		}
	}

	var candidates []candidate
	if len(lexical) == 0 && len(vector) == 0 {
		candidates, err = e.substringCandidates(ctx, query, oversample, allowed)
		if err != nil {
			return nil, err
		}
	} else {
		normLex := minMaxNormalize(lexical)
		normVec := minMaxNormalize(vector)
		lexOnly := len(vector) == 0
		vecOnly := len(lexical) == 0

		seen := make(map[resultKey]bool, len(meta))
		for k := range meta {
			if seen[k] {
				continue
			}
			seen[k] = true

			var fused float64
			switch {
			case lexOnly:
				fused = normLex[k]
			case vecOnly:
				fused = normVec[k]
			default:
				fused = 0.5*normLex[k] + 0.5*normVec[k]
			}

			c := meta[k]
			c.score = fused
			candidates = append(candidates, c)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > opts.MaxResults {
		candidates = candidates[:opts.MaxResults]
	}

	candidates, err = e.applyAccessBoost(ctx, candidates)
	if err != nil {
		return nil, err
	}

	snippetChars := snippetBudget(opts.TokenMax, opts.MaxResults)
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{
			Path:      c.key.path,
			StartLine: c.key.startLine,
			EndLine:   c.endLine,
			Score:     c.score,
			Snippet:   truncateSnippet(c.text, snippetChars),
			Source:    c.source,
		}
	}
	return results, nil
}

// applyAccessBoost bumps each final result's access count and re-scores it
// via the access-boost blend, then re-sorts best-first.
func (e *Engine) applyAccessBoost(ctx context.Context, candidates []candidate) ([]candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	keys := make([]store.AccessKey, len(candidates))
	for i, c := range candidates {
		keys[i] = store.AccessKey{Path: c.key.path, Source: c.source, StartLine: c.key.startLine}
	}

	counts, err := e.store.BumpAccessCounts(ctx, keys)
	if err != nil {
		return nil, err
	}

	for i, c := range candidates {
		count := counts[keys[i]]
		candidates[i].score = accessBoost(c.score, count)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	return candidates, nil
}
