package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSONRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory-mcp.log")

	logger, cleanup, err := Setup(DefaultConfig(path))
	require.NoError(t, err)
	defer cleanup()

	logger.Info("hello", "key", "value")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
	require.Contains(t, string(data), `"key":"value"`)
}

func TestRotatingWriterRotatesOnSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	w, err := NewRotatingWriter(path, 0, 2) // maxSize rounds to 0 bytes -> rotate every write
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("first record\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second record\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 2)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, parseLevel("debug").String(), "DEBUG")
	require.Equal(t, parseLevel("warn").String(), "WARN")
	require.Equal(t, parseLevel("bogus").String(), "INFO")
}

func TestSetupDefaultInstallsLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.log")

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	cfg := DefaultConfig(path)
	cleanup, err := SetupDefault(cfg)
	require.NoError(t, err)
	defer cleanup()

	slog.Info("installed-marker")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "installed-marker")
	require.False(t, strings.Contains(buf.String(), "should-not-appear"))
}
