package search

import "math"

// clamp bounds v to [lo, hi].
func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// bm25ToScore converts a raw (negative) FTS5 bm25() rank into a 0..1 score.
// Non-finite or zero ranks (no match signal) score 0.
func bm25ToScore(rank float64) float64 {
	if rank == 0 || math.IsNaN(rank) || math.IsInf(rank, 0) {
		return 0
	}
	return clamp(0, 1, 1+math.Log10(math.Abs(rank))/10)
}

// distanceToScore converts an HNSW cosine distance into a 0..1 similarity.
func distanceToScore(distance float32) float64 {
	return clamp(0, 1, 1-float64(distance))
}

// resultKey identifies a chunk for fusion/dedup purposes: the spec keys
// fusion by (path, startLine), not by chunk ID, so lexical and vector hits
// for the same logical span merge even if their chunk rows diverge.
type resultKey struct {
	path      string
	startLine int
}

// minMaxNormalize rescales scores to 0..1. A single-element input becomes
// 1.0; a degenerate (all-equal) range also becomes all 1.0.
func minMaxNormalize(scores map[resultKey]float64) map[resultKey]float64 {
	if len(scores) == 0 {
		return scores
	}
	if len(scores) == 1 {
		out := make(map[resultKey]float64, 1)
		for k := range scores {
			out[k] = 1.0
		}
		return out
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	out := make(map[resultKey]float64, len(scores))
	if max == min {
		for k := range scores {
			out[k] = 1.0
		}
		return out
	}
	for k, s := range scores {
		out[k] = (s - min) / (max - min)
	}
	return out
}

// accessBoost blends a re-scoring signal from a chunk's access count into
// its fusion score, per SPEC_FULL.md §4.7's access-boost step.
func accessBoost(score float64, count int) float64 {
	if count <= 0 {
		return score
	}
	boost := math.Min(1, math.Log2(1+float64(count))/10)
	return 0.85*score + 0.15*boost
}
