// Package cmd provides the CLI commands for memory-mcp.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/XingxingLi2017/memory-mcp/pkg/version"
)

// Persistent flags applied on top of the loaded Config by buildApp/runServe.
// Empty/false means "use the config's default/env-resolved value".
var (
	workspaceOverride string
	dbPathOverride    string
	logLevelOverride  string
	debugOverride     bool
)

// NewRootCmd creates the root command for the memory-mcp CLI. Invoked with
// no subcommand, it runs 'serve' over stdio so `memory-mcp` alone behaves
// like an MCP server entry in a host's .mcp.json.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory-mcp",
		Short: "A local-first memory server for AI coding assistants",
		Long: `memory-mcp indexes a Markdown fact ledger and session transcripts,
and serves them to AI coding assistants over the Model Context Protocol
via hybrid lexical/vector search.

Run 'memory-mcp serve' to start the MCP server, or 'memory-mcp status'
to check index health.`,
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), "stdio", "", debugOverride)
		},
	}
	cmd.SetVersionTemplate("memory-mcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&workspaceOverride, "workspace", "", "Workspace directory (default: $HOME/.claude, or $MEMORY_WORKSPACE)")
	cmd.PersistentFlags().StringVar(&dbPathOverride, "db-path", "", "Database path (default: <workspace>/memory.db, or $MEMORY_DB_PATH)")
	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Log level: debug, info, warn, error (default: $MEMORY_LOG_LEVEL or info)")
	cmd.PersistentFlags().BoolVar(&debugOverride, "debug", false, "Enable debug logging (shorthand for --log-level=debug)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
