package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
	"github.com/XingxingLi2017/memory-mcp/internal/scanner"
	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "memory.db"), 512)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestEngine(t *testing.T, workspace string) (*Engine, *store.Store) {
	t.Helper()
	st := openTestStore(t)
	sc, err := scanner.New()
	require.NoError(t, err)
	sessions := config.SessionsConfig{Days: 30, Max: 0} // disable sessions unless a test overrides
	return New(st, sc, workspace, sessions), st
}

func TestSyncAllInsertsNewMemoryFile(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "MEMORY.md"), []byte("# hi\nsome notes\n"), 0o644))

	e, st := newTestEngine(t, workspace)

	res, err := e.SyncAll(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, res.Memory)
	require.Equal(t, 1, res.Memory.Reindexed)
	require.Equal(t, 0, res.Memory.Skipped)

	stats, err := st.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.MemoryFiles)
	require.Greater(t, stats.Chunks, 0)
}

func TestSyncAllSkipsUnchangedFile(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "MEMORY.md"), []byte("unchanged content"), 0o644))

	e, _ := newTestEngine(t, workspace)

	ctx := context.Background()
	_, err := e.SyncAll(ctx, false)
	require.NoError(t, err)

	res, err := e.SyncAll(ctx, true) // force bypasses cooldown so the second pass actually scans again
	require.NoError(t, err)
	require.Equal(t, 1, res.Memory.Skipped)
	require.Equal(t, 0, res.Memory.Reindexed)
}

func TestSyncAllReindexesChangedFile(t *testing.T) {
	workspace := t.TempDir()
	path := filepath.Join(workspace, "MEMORY.md")
	require.NoError(t, os.WriteFile(path, []byte("version one"), 0o644))

	e, st := newTestEngine(t, workspace)
	ctx := context.Background()
	_, err := e.SyncAll(ctx, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version two, quite different"), 0o644))
	res, err := e.SyncAll(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, res.Memory.Reindexed)

	files, err := st.ListFiles("memory")
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestSyncAllDeletesStaleFile(t *testing.T) {
	workspace := t.TempDir()
	path := filepath.Join(workspace, "memory", "note.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("a note"), 0o644))

	e, st := newTestEngine(t, workspace)
	ctx := context.Background()
	_, err := e.SyncAll(ctx, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	res, err := e.SyncAll(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, res.Memory.Deleted)

	files, err := st.ListFiles("memory")
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestSyncAllRespectsCooldown(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "MEMORY.md"), []byte("content"), 0o644))

	e, _ := newTestEngine(t, workspace)
	ctx := context.Background()

	res1, err := e.SyncAll(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, res1.Memory)

	res2, err := e.SyncAll(ctx, false)
	require.NoError(t, err)
	require.Nil(t, res2.Memory) // cooldown not yet elapsed
}

func TestResetMemoryCooldownForcesImmediateResync(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "MEMORY.md"), []byte("content"), 0o644))

	e, _ := newTestEngine(t, workspace)
	ctx := context.Background()

	_, err := e.SyncAll(ctx, false)
	require.NoError(t, err)

	e.ResetMemoryCooldown()

	res, err := e.SyncAll(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, res.Memory)
}

func TestSyncSessionsChunkedAsMarkdownRegardlessOfExtension(t *testing.T) {
	workspace := t.TempDir()
	copilotRoot := t.TempDir()
	sessionDir := filepath.Join(copilotRoot, "22222222-2222-2222-2222-222222222222")
	require.NoError(t, os.MkdirAll(sessionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "events.jsonl"),
		[]byte(`{"type":"user.message","data":{"content":"question about something"}}`+"\n"+
			`{"type":"assistant.message","data":{"content":"a fairly detailed answer"}}`+"\n"), 0o644))
	t.Setenv("MEMORY_COPILOT_SESSIONS_ROOT", copilotRoot)
	t.Setenv("MEMORY_CLAUDE_PROJECTS_ROOT", t.TempDir())

	st := openTestStore(t)
	sc, err := scanner.New()
	require.NoError(t, err)
	e := New(st, sc, workspace, config.SessionsConfig{Days: 30, Max: -1})

	res, err := e.SyncAll(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, res.Sessions)
	require.Equal(t, 1, res.Sessions.Reindexed)

	stats, err := st.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.SessionFiles)
}
