package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
)

// ScanMemory enumerates the memory source: the well-known top-level memory
// files plus the recursive walk of memory/, deduplicated by resolved real
// path so a hardlink or case-variant alias is never indexed twice. The
// dedup set covers one scan and is cleared when the scan returns.
func (s *Scanner) ScanMemory(workspace string) ([]Entry, error) {
	defer s.seenRealPaths.Purge()
	var entries []Entry

	for _, name := range config.MemoryFileNames {
		path := filepath.Join(workspace, name)
		info, err := os.Lstat(path)
		if err != nil {
			continue // not present
		}
		if !info.Mode().IsRegular() {
			continue // symlink or other non-regular file
		}
		entry, ok, err := s.buildMemoryEntry(workspace, path, info)
		if err != nil {
			slog.Warn("scanner_memory_file_skipped", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	memDir := filepath.Join(workspace, "memory")
	if _, err := os.Stat(memDir); err != nil {
		return entries, nil
	}

	walkErr := filepath.WalkDir(memDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("scanner_memory_walk_error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			slog.Warn("scanner_memory_symlink_skipped", slog.String("path", path))
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !config.IndexedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("scanner_memory_stat_error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		entry, ok, err := s.buildMemoryEntry(workspace, path, info)
		if err != nil {
			slog.Warn("scanner_memory_file_skipped", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if ok {
			entries = append(entries, entry)
		}
		return nil
	})
	if walkErr != nil {
		return entries, walkErr
	}

	return entries, nil
}

// buildMemoryEntry reads and hashes a candidate file, returning ok=false if
// its resolved real path has already been seen.
func (s *Scanner) buildMemoryEntry(workspace, path string, info os.FileInfo) (Entry, bool, error) {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return Entry{}, false, err
	}
	if _, seen := s.seenRealPaths.Get(real); seen {
		return Entry{}, false, nil
	}
	s.seenRealPaths.Add(real, struct{}{})

	content, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, false, err
	}

	relPath, err := filepath.Rel(workspace, path)
	if err != nil {
		return Entry{}, false, err
	}

	sum := sha256.Sum256(content)
	return Entry{
		Path:    filepath.ToSlash(relPath),
		Source:  "memory",
		Content: string(content),
		Hash:    hex.EncodeToString(sum[:]),
		Size:    info.Size(),
		Mtime:   info.ModTime().UnixMilli(),
	}, true, nil
}
