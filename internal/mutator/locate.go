package mutator

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/XingxingLi2017/memory-mcp/internal/search"
)

const (
	forgetSearchMaxResults = 5
	forgetSearchMinScore   = 0.3
)

// located identifies one ledger entry found by Forget/Update's lookup.
type located struct {
	absPath string
	relPath string
	raw     []string
	idx     int
	entry   entry
}

// locateEntry finds the ledger entry matching content, scanning category's
// file(s) (or every category file when category is empty). Primary match:
// an entry whose normalized content equals, contains, or is contained by
// content's normalized form. Fallback: a Search pass restricted to memory
// hits, picking the entry with the highest word overlap with content across
// all candidate hits' chunk line ranges (ties broken by hit rank).
func (m *Mutator) locateEntry(ctx context.Context, content, category string) (located, bool, error) {
	paths, err := listCategoryFiles(m.workspace, category)
	if err != nil {
		return located{}, false, err
	}

	normalized := normalizeContent(content)
	for _, path := range paths {
		raw, err := readRawLines(path)
		if err != nil {
			return located{}, false, err
		}
		for i, line := range raw {
			e, ok := parseEntryLine(line)
			if !ok {
				continue
			}
			n := normalizeContent(e.Content)
			if n == normalized || strings.Contains(n, normalized) || strings.Contains(normalized, n) {
				rel, relErr := filepath.Rel(m.workspace, path)
				if relErr != nil {
					rel = path
				}
				return located{absPath: path, relPath: filepath.ToSlash(rel), raw: raw, idx: i, entry: e}, true, nil
			}
		}
	}

	if m.search == nil {
		return located{}, false, nil
	}

	hits, err := m.search.Search(ctx, content, search.Options{
		MaxResults: forgetSearchMaxResults,
		MinScore:   forgetSearchMinScore,
	})
	if err != nil {
		return located{}, false, err
	}

	type candidate struct {
		rank    int
		overlap float64
		found   located
	}
	var best *candidate

	for rank, h := range hits {
		if h.Source != "memory" {
			continue
		}
		absPath := filepath.Join(m.workspace, filepath.FromSlash(h.Path))
		raw, err := readRawLines(absPath)
		if err != nil {
			return located{}, false, err
		}
		for i := h.StartLine - 1; i >= 0 && i <= h.EndLine-1 && i < len(raw); i++ {
			e, ok := parseEntryLine(raw[i])
			if !ok {
				continue
			}
			overlap := wordOverlap(content, e.Content)
			if best == nil || overlap > best.overlap {
				best = &candidate{
					rank:    rank,
					overlap: overlap,
					found:   located{absPath: absPath, relPath: h.Path, raw: raw, idx: i, entry: e},
				}
			}
		}
	}

	if best == nil {
		return located{}, false, nil
	}
	return best.found, true, nil
}
