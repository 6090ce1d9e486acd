package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the workspace index once and exit",
		Long: `Scan the memory ledger and session transcripts, reindex anything
changed since the last sync, and report what was done. Unlike 'serve', this
runs a single pass and exits; it does not start the MCP server or the
background embedding loop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Ignore cooldowns and resync both sources")
	return cmd
}

func runSync(cmd *cobra.Command, force bool) error {
	a, err := buildApp(".")
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.syncer.SyncAll(cmd.Context(), force)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	out := cmd.OutOrStdout()
	if res.Memory != nil {
		fmt.Fprintf(out, "memory:   scanned=%d reindexed=%d skipped=%d deleted=%d\n",
			res.Memory.Scanned, res.Memory.Reindexed, res.Memory.Skipped, res.Memory.Deleted)
	} else {
		fmt.Fprintln(out, "memory:   skipped (cooldown not elapsed)")
	}
	if res.Sessions != nil {
		fmt.Fprintf(out, "sessions: scanned=%d reindexed=%d skipped=%d deleted=%d\n",
			res.Sessions.Scanned, res.Sessions.Reindexed, res.Sessions.Skipped, res.Sessions.Deleted)
	} else {
		fmt.Fprintln(out, "sessions: skipped (cooldown not elapsed)")
	}

	return nil
}
