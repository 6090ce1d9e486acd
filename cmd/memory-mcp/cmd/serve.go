package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/XingxingLi2017/memory-mcp/internal/logging"
)

// syncLoopInterval bounds how often the background reconciliation loop
// calls SyncAll; the Engine's own per-source cooldowns decide whether any
// given tick actually does work.
const syncLoopInterval = 5 * time.Second

func newServeCmd() *cobra.Command {
	var transport string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server, reconciling the workspace index once at
startup and then on a cooldown-debounced loop in the background, alongside
a background embedding pass that keeps the vector index caught up.

MCP requires stdout to carry only JSON-RPC traffic: all diagnostics go to
the log file, never stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), transport, addr, debugOverride)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve over (stdio)")
	cmd.Flags().StringVar(&addr, "addr", "", "Network address, for transports that need one")

	return cmd
}

func runServe(ctx context.Context, transport, addr string, debug bool) error {
	a, err := buildApp(".")
	if err != nil {
		return err
	}
	defer a.Close()

	logCfg := logging.DefaultConfig(a.cfg.Logging.File)
	if a.cfg.Logging.Level != "" {
		logCfg.Level = a.cfg.Logging.Level
	}
	if debug || a.cfg.Logging.Level == "debug" {
		logCfg = logging.DebugConfig(a.cfg.Logging.File)
	}
	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if _, err := a.syncer.SyncAll(ctx, true); err != nil {
		slog.Warn("initial_sync_failed", "error", err)
	}

	a.embedSync.Start(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runSyncLoop(ctx, a)
	}()

	server := a.mcpServer()
	err = server.Serve(ctx, transport, addr)

	stop()
	wg.Wait()
	if waitErr := a.embedSync.Wait(); waitErr != nil {
		slog.Warn("embedding_syncer_stopped_with_error", "error", waitErr)
	}

	return err
}

// runSyncLoop periodically reconciles the workspace until ctx is canceled.
func runSyncLoop(ctx context.Context, a *app) {
	ticker := time.NewTicker(syncLoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.syncer.SyncAll(ctx, false); err != nil {
				slog.Warn("background_sync_failed", "error", err)
			}
		}
	}
}
