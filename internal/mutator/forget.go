package mutator

import "context"

// Forget removes the ledger entry matching content, deleting its evidence
// file if any.
func (m *Mutator) Forget(ctx context.Context, content, category string) (ForgetResult, error) {
	category = sanitizeCategoryOptional(category)

	found, ok, err := m.locateEntry(ctx, content, category)
	if err != nil {
		return ForgetResult{}, err
	}
	if !ok {
		return ForgetResult{Removed: false, Reason: "not_found"}, nil
	}

	if err := writeRawLinesRemoving(found.absPath, found.raw, found.idx); err != nil {
		return ForgetResult{}, err
	}
	if err := removeEvidenceFile(m.workspace, found.entry.EvidencePath); err != nil {
		return ForgetResult{}, err
	}

	return ForgetResult{Removed: true, Path: found.relPath, RemovedContent: found.entry.Content}, nil
}

// sanitizeCategoryOptional sanitizes category when non-empty, but leaves it
// empty (meaning "scan every category") rather than defaulting to "general":
// Forget/Update's category parameter narrows a lookup, it doesn't pick a
// file to create.
func sanitizeCategoryOptional(category string) string {
	if category == "" {
		return ""
	}
	return sanitizeCategory(category)
}
