package mutator

import "context"

// Update replaces the ledger entry matching old_content with new_content:
// it deletes the old entry's evidence file, optionally writes a new one,
// and replaces the line in place with a freshly timestamped entry.
func (m *Mutator) Update(ctx context.Context, oldContent, newContent, category, source, evidence string) (UpdateResult, error) {
	lookupCategory := sanitizeCategoryOptional(category)

	found, ok, err := m.locateEntry(ctx, oldContent, lookupCategory)
	if err != nil {
		return UpdateResult{}, err
	}
	if !ok {
		return UpdateResult{Updated: false, Reason: "not_found"}, nil
	}

	if err := removeEvidenceFile(m.workspace, found.entry.EvidencePath); err != nil {
		return UpdateResult{}, err
	}

	var evidencePath string
	if evidence != "" {
		evidencePath, err = writeEvidenceFile(m.workspace, factID(newContent), newContent, evidence)
		if err != nil {
			return UpdateResult{}, err
		}
	}

	entrySource := source
	if entrySource == "" {
		entrySource = found.entry.Source
	}

	replacement := entry{Content: newContent, EvidencePath: evidencePath, Source: entrySource, Timestamp: nowTimestamp()}
	if err := writeRawLinesReplacing(found.absPath, found.raw, found.idx, formatEntryLine(replacement)); err != nil {
		return UpdateResult{}, err
	}

	if m.sync != nil {
		m.sync.ResetMemoryCooldown()
	}

	return UpdateResult{
		Updated:      true,
		Path:         found.relPath,
		Old:          found.entry.Content,
		New:          newContent,
		EvidencePath: evidencePath,
	}, nil
}
