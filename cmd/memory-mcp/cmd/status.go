package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		Long: `Display the number of indexed files and chunks, how many chunks
are embedded, the active configuration, the last successful sync time, and
any size warnings (too many files, duplicate content, oversized files).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusCmd(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatusCmd(cmd *cobra.Command, jsonOutput bool) error {
	a, err := buildApp(".")
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.mcpServer().Status(context.Background())
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "workspace:       %s\n", out.WorkspaceDir)
	fmt.Fprintf(w, "database:        %s\n", out.DBPath)
	fmt.Fprintf(w, "files:           %d (%d memory, %d sessions)\n", out.Files, out.MemoryFiles, out.SessionFiles)
	fmt.Fprintf(w, "chunks:          %d (%d embedded)\n", out.Chunks, out.EmbeddedChunks)
	fmt.Fprintf(w, "embedding cache: %d\n", out.EmbeddingCache)
	fmt.Fprintf(w, "embedder:        %s (ready=%v)\n", out.Config.EmbeddingModel, out.Config.EmbedderReady)
	if out.LastSyncAt != "" {
		fmt.Fprintf(w, "last sync:       %s\n", out.LastSyncAt)
	} else {
		fmt.Fprintln(w, "last sync:       never")
	}
	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "warning:         %s\n", warning)
	}

	return nil
}
