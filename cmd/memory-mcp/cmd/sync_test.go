package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTempWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "memory"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memory", "general.md"), []byte("# General\n\n- a fact worth remembering\n"), 0o644))

	prev := workspaceOverride
	workspaceOverride = dir
	t.Cleanup(func() { workspaceOverride = prev })
	return dir
}

func TestSyncCmd_ReportsBothSources(t *testing.T) {
	withTempWorkspace(t)

	cmd := newSyncCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--force"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "memory:")
	assert.Contains(t, output, "sessions:")
}

func TestSyncCmd_AddedToRoot(t *testing.T) {
	root := NewRootCmd()
	found, _, err := root.Find([]string{"sync"})
	require.NoError(t, err)
	assert.Equal(t, "sync", found.Name())
}
