package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
)

func writeSessionFixtures(t *testing.T) (copilotRoot, claudeRoot string) {
	t.Helper()

	copilotRoot = t.TempDir()
	sessionDir := filepath.Join(copilotRoot, "11111111-1111-1111-1111-111111111111")
	require.NoError(t, os.MkdirAll(sessionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "events.jsonl"),
		[]byte(`{"type":"user.message","data":{"content":"copilot question"}}`+"\n"+
			`{"type":"assistant.message","data":{"content":"copilot answer"}}`+"\n"), 0o644))

	claudeRoot = t.TempDir()
	projectDir := filepath.Join(claudeRoot, "-root-module")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "session-a.jsonl"),
		[]byte(`{"type":"user","message":{"content":"claude question"}}`+"\n"+
			`{"type":"assistant","message":{"content":"claude answer"}}`+"\n"), 0o644))

	return copilotRoot, claudeRoot
}

func TestScanSessionsCombinesBothRoots(t *testing.T) {
	copilotRoot, claudeRoot := writeSessionFixtures(t)
	t.Setenv(copilotSessionsRootEnv, copilotRoot)
	t.Setenv(claudeProjectsRootEnv, claudeRoot)

	s, err := New()
	require.NoError(t, err)

	entries, err := s.ScanSessions(config.SessionsConfig{Days: 30, Max: -1})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var paths []string
	for _, e := range entries {
		require.Equal(t, "sessions", e.Source)
		paths = append(paths, e.Path)
	}
	require.Contains(t, paths, "sessions/11111111-1111-1111-1111-111111111111.jsonl")
	require.Contains(t, paths, "sessions/session-a.jsonl")
}

func TestScanSessionsMaxZeroDisablesSessionIndexing(t *testing.T) {
	copilotRoot, claudeRoot := writeSessionFixtures(t)
	t.Setenv(copilotSessionsRootEnv, copilotRoot)
	t.Setenv(claudeProjectsRootEnv, claudeRoot)

	s, err := New()
	require.NoError(t, err)

	entries, err := s.ScanSessions(config.SessionsConfig{Days: 30, Max: 0})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestScanSessionsMaxCapLimitsToNewest(t *testing.T) {
	copilotRoot, claudeRoot := writeSessionFixtures(t)
	t.Setenv(copilotSessionsRootEnv, copilotRoot)
	t.Setenv(claudeProjectsRootEnv, claudeRoot)

	newest := filepath.Join(claudeRoot, "-root-module", "session-a.jsonl")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(newest, future, future))

	s, err := New()
	require.NoError(t, err)

	entries, err := s.ScanSessions(config.SessionsConfig{Days: 30, Max: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "sessions/session-a.jsonl", entries[0].Path)
}

func TestScanSessionsDayWindowExcludesStaleFiles(t *testing.T) {
	copilotRoot, claudeRoot := writeSessionFixtures(t)
	t.Setenv(copilotSessionsRootEnv, copilotRoot)
	t.Setenv(claudeProjectsRootEnv, claudeRoot)

	stale := filepath.Join(copilotRoot, "11111111-1111-1111-1111-111111111111", "events.jsonl")
	old := time.Now().AddDate(0, 0, -60)
	require.NoError(t, os.Chtimes(stale, old, old))

	s, err := New()
	require.NoError(t, err)

	entries, err := s.ScanSessions(config.SessionsConfig{Days: 30, Max: -1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "sessions/session-a.jsonl", entries[0].Path)
}

func TestScanSessionsEmptyFileSkipped(t *testing.T) {
	copilotRoot, claudeRoot := writeSessionFixtures(t)
	t.Setenv(copilotSessionsRootEnv, copilotRoot)
	t.Setenv(claudeProjectsRootEnv, claudeRoot)

	empty := filepath.Join(copilotRoot, "11111111-1111-1111-1111-111111111111", "events.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	s, err := New()
	require.NoError(t, err)

	entries, err := s.ScanSessions(config.SessionsConfig{Days: 30, Max: -1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "sessions/session-a.jsonl", entries[0].Path)
}
