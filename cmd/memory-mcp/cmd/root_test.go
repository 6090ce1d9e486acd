package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersAllSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "sync", "status", "version", "init"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err, "subcommand %q should exist", name)
		assert.Equal(t, name, found.Name())
	}
}

func TestRootCmd_HasWorkspaceFlag(t *testing.T) {
	root := NewRootCmd()
	flag := root.PersistentFlags().Lookup("workspace")
	require.NotNil(t, flag)
}

func TestRootCmd_HasDbPathLogLevelAndDebugFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"db-path", "log-level", "debug"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing persistent flag %q", name)
	}
}

func TestRootCmd_NoSubcommandRunsServe(t *testing.T) {
	withTempWorkspace(t)

	root := NewRootCmd()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	root.SetArgs([]string{})

	errCh := make(chan error, 1)
	go func() { errCh <- root.ExecuteContext(ctx) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("default invocation did not shut down in time")
	}
}

func TestRootCmd_VersionFlagUsesVersionPackage(t *testing.T) {
	root := NewRootCmd()
	assert.NotEmpty(t, root.Version)
}
