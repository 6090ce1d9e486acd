package mutator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// categoryRelPath returns the category ledger file's path relative to the
// workspace, '/'-separated, e.g. "memory/general.md".
func categoryRelPath(category string) string {
	return "memory/" + category + ".md"
}

func categoryAbsPath(workspace, category string) string {
	return filepath.Join(workspace, "memory", category+".md")
}

func evidenceRelPath(factID string) string {
	return "memory/evidence/" + factID + ".md"
}

func evidenceAbsPath(workspace, factID string) string {
	return filepath.Join(workspace, "memory", "evidence", factID+".md")
}

// factID derives the evidence file's stem from content: the first 12 hex
// characters of its SHA-256.
func factID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:12]
}

// readCategoryFile reads a category ledger file, splitting it into its
// leading header (everything before the first entry line) and its entry
// lines. A missing file yields the default header for category and no
// lines.
func readCategoryFile(path, category string) (header string, lines []string, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return categoryHeader(category), nil, nil
	}
	if err != nil {
		return "", nil, err
	}

	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return categoryHeader(category), nil, nil
	}

	all := strings.Split(text, "\n")
	splitAt := len(all)
	for i, l := range all {
		if strings.HasPrefix(l, "- ") {
			splitAt = i
			break
		}
	}
	header = strings.Join(all[:splitAt], "\n")
	if header != "" {
		header += "\n"
	}
	return header, all[splitAt:], nil
}

// writeCategoryLines atomically (re)writes a category ledger file: a
// "# <Title>\n\n" header followed by lines, one entry per line. header
// should already include the trailing blank line.
func writeCategoryLines(path, header string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(header)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// categoryHeader builds the "# Title\n\n" header for a freshly created
// category file. Title-cases the category's first letter; e.g. "general"
// becomes "# General".
func categoryHeader(category string) string {
	title := category
	if len(title) > 0 {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return fmt.Sprintf("# %s\n\n", title)
}

func writeEvidenceFile(workspace, factID, content, evidence string) (string, error) {
	abs := evidenceAbsPath(workspace, factID)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	body := fmt.Sprintf("# Evidence for: %s\n\n%s\n", content, evidence)
	tmpPath := abs + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(body), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return evidenceRelPath(factID), nil
}

// readRawLines reads a file's full, unsplit line list, preserving header
// and entry lines alike, indexed exactly as they appear on disk.
func readRawLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// writeRawLinesRemoving rewrites path with raw's line at idx removed.
func writeRawLinesRemoving(path string, raw []string, idx int) error {
	out := make([]string, 0, len(raw)-1)
	out = append(out, raw[:idx]...)
	out = append(out, raw[idx+1:]...)
	return writeRawLines(path, out)
}

// writeRawLinesReplacing rewrites path with raw's line at idx replaced by
// replacement.
func writeRawLinesReplacing(path string, raw []string, idx int, replacement string) error {
	out := make([]string, len(raw))
	copy(out, raw)
	out[idx] = replacement
	return writeRawLines(path, out)
}

func writeRawLines(path string, lines []string) error {
	body := strings.Join(lines, "\n")
	if body != "" {
		body += "\n"
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(body), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// listCategoryFiles resolves which category ledger file(s) a Forget/Update
// lookup should scan: just the named category's file if category is
// non-empty (and exists), otherwise every "*.md" file directly under
// memory/ (evidence files live one directory deeper, under memory/evidence/,
// so the shallow glob never includes them).
func listCategoryFiles(workspace, category string) ([]string, error) {
	if category != "" {
		path := categoryAbsPath(workspace, sanitizeCategory(category))
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		return []string{path}, nil
	}
	return filepath.Glob(filepath.Join(workspace, "memory", "*.md"))
}

func removeEvidenceFile(workspace, evidenceRel string) error {
	if evidenceRel == "" {
		return nil
	}
	abs := filepath.Join(workspace, filepath.FromSlash(evidenceRel))
	err := os.Remove(abs)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
