package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
)

// copilotSessionsRootEnv and claudeProjectsRootEnv name the environment
// variables that override the well-known transcript roots, so tests can
// point the Scanner at a fixture tree.
const (
	copilotSessionsRootEnv = "MEMORY_COPILOT_SESSIONS_ROOT"
	claudeProjectsRootEnv  = "MEMORY_CLAUDE_PROJECTS_ROOT"
)

func copilotSessionsRoot() string {
	if v := os.Getenv(copilotSessionsRootEnv); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".copilot", "sessions")
}

func claudeProjectsRoot() string {
	if v := os.Getenv(claudeProjectsRootEnv); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "projects")
}

// sessionCandidate is a transcript file found under one of the two roots,
// not yet read or extracted.
type sessionCandidate struct {
	id    string // Copilot: session UUID (dir name). Claude: file stem.
	path  string
	size  int64
	mtime time.Time
}

// ScanSessions enumerates both transcript roots, applies the day window
// and max-count cap from cfg, and extracts each surviving transcript into
// a plain-text Entry.
func (s *Scanner) ScanSessions(cfg config.SessionsConfig) ([]Entry, error) {
	if cfg.Max == 0 {
		return nil, nil
	}

	candidates := append(copilotCandidates(copilotSessionsRoot()), claudeCandidates(claudeProjectsRoot())...)

	if cfg.Days > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.Days)
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.mtime.After(cutoff) {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].mtime.After(candidates[j].mtime) })

	if cfg.Max > 0 && len(candidates) > cfg.Max {
		candidates = candidates[:cfg.Max]
	}

	var entries []Entry
	for _, c := range candidates {
		entry, ok, err := extractSession(c)
		if err != nil {
			continue
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// copilotCandidates finds root/<uuid>/events.jsonl for each session dir.
func copilotCandidates(root string) []sessionCandidate {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []sessionCandidate
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		path := filepath.Join(root, d.Name(), "events.jsonl")
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			continue
		}
		out = append(out, sessionCandidate{id: d.Name(), path: path, size: info.Size(), mtime: info.ModTime()})
	}
	return out
}

// claudeCandidates finds root/<project>/<session>.jsonl for each project dir.
func claudeCandidates(root string) []sessionCandidate {
	projects, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []sessionCandidate
	for _, p := range projects {
		if !p.IsDir() {
			continue
		}
		projectDir := filepath.Join(root, p.Name())
		files, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".jsonl") {
				continue
			}
			path := filepath.Join(projectDir, f.Name())
			info, err := f.Info()
			if err != nil || info.Size() == 0 {
				continue
			}
			id := strings.TrimSuffix(f.Name(), ".jsonl")
			out = append(out, sessionCandidate{id: id, path: path, size: info.Size(), mtime: info.ModTime()})
		}
	}
	return out
}

func extractSession(c sessionCandidate) (Entry, bool, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return Entry{}, false, err
	}

	text := extractTranscript(raw)
	if text == "" {
		return Entry{}, false, nil
	}

	return hashEntry(Entry{
		Path:    "sessions/" + c.id + ".jsonl",
		Source:  "sessions",
		Content: text,
		Size:    c.size,
		Mtime:   c.mtime.UnixMilli(),
	}), true, nil
}
