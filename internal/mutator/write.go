package mutator

import (
	"context"

	"github.com/XingxingLi2017/memory-mcp/internal/search"
)

const (
	semanticDedupMaxResults = 3
	semanticDedupMinScore   = 0.3
	semanticDedupOverlap    = 0.5
	semanticDedupScore      = 0.6
)

// Write appends a fact to category's ledger file, after exact and semantic
// dedup checks, optionally linking an evidence file, and resets the sync
// cooldown so the next SyncAll observes the write.
func (m *Mutator) Write(ctx context.Context, content, category, source, evidence string) (WriteResult, error) {
	category = sanitizeCategory(category)
	path := categoryAbsPath(m.workspace, category)
	relPath := categoryRelPath(category)

	header, lines, err := readCategoryFile(path, category)
	if err != nil {
		return WriteResult{}, err
	}

	normalized := normalizeContent(content)
	for _, l := range lines {
		e, ok := parseEntryLine(l)
		if !ok {
			continue
		}
		if normalizeContent(e.Content) == normalized {
			return WriteResult{Stored: false, Reason: "duplicate"}, nil
		}
	}

	if dup, err := m.semanticDuplicate(ctx, content); err != nil {
		return WriteResult{}, err
	} else if dup != nil {
		return *dup, nil
	}

	var evidencePath string
	if evidence != "" {
		evidencePath, err = writeEvidenceFile(m.workspace, factID(content), content, evidence)
		if err != nil {
			return WriteResult{}, err
		}
	}

	e := entry{Content: content, EvidencePath: evidencePath, Source: source, Timestamp: nowTimestamp()}
	lines = append(lines, formatEntryLine(e))

	if err := writeCategoryLines(path, header, lines); err != nil {
		return WriteResult{}, err
	}

	if m.sync != nil {
		m.sync.ResetMemoryCooldown()
	}

	return WriteResult{Stored: true, Path: relPath, Fact: content, EvidencePath: evidencePath}, nil
}

// semanticDuplicate runs the semantic-dedup search pass; a non-nil result
// means Write must stop and return it as-is.
func (m *Mutator) semanticDuplicate(ctx context.Context, content string) (*WriteResult, error) {
	if m.search == nil {
		return nil, nil
	}
	hits, err := m.search.Search(ctx, content, search.Options{
		MaxResults: semanticDedupMaxResults,
		MinScore:   semanticDedupMinScore,
	})
	if err != nil {
		return nil, err
	}

	for _, h := range hits {
		if h.Source != "memory" {
			continue
		}
		if h.Score <= semanticDedupScore {
			continue
		}
		if wordOverlap(content, h.Snippet) < semanticDedupOverlap {
			continue
		}
		return &WriteResult{
			Stored:       false,
			Reason:       "semantic_duplicate",
			SimilarEntry: h.Snippet,
			Path:         h.Path,
		}, nil
	}
	return nil, nil
}
