package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/XingxingLi2017/memory-mcp/configs"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Seed a .memory-mcp.yaml config file in the current directory",
		Long: `Write configs/default-config.example.yaml's template to
.memory-mcp.yaml in the current directory, commented with every tunable
and its default. Edit the result to override workspace path, chunk size,
embedding provider, or logging; anything left blank falls back to the
hardcoded default, and MEMORY_* environment variables always win over
the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .memory-mcp.yaml")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	path := filepath.Join(dir, ".memory-mcp.yaml")
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.WriteFile(path, []byte(configs.DefaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
