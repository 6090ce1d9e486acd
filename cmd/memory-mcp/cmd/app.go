package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
	"github.com/XingxingLi2017/memory-mcp/internal/embed"
	"github.com/XingxingLi2017/memory-mcp/internal/mcp"
	"github.com/XingxingLi2017/memory-mcp/internal/mutator"
	"github.com/XingxingLi2017/memory-mcp/internal/scanner"
	"github.com/XingxingLi2017/memory-mcp/internal/search"
	"github.com/XingxingLi2017/memory-mcp/internal/store"
	"github.com/XingxingLi2017/memory-mcp/internal/sync"
)

// app bundles the components every subcommand needs, wired from a single
// loaded Config. It owns the Store and embedder and must be closed.
type app struct {
	cfg       *config.Config
	store     *store.Store
	embedder  embed.Embedder
	scanner   *scanner.Scanner
	syncer    *sync.Engine
	search    *search.Engine
	mutator   *mutator.Mutator
	embedSync *sync.EmbeddingSyncer
}

// buildApp loads config from dir, opens the Store, and wires the rest of
// the dependency graph the way NewRootCmd's subcommands all need it.
func buildApp(dir string) (*app, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if workspaceOverride != "" {
		cfg.Paths.Workspace = workspaceOverride
		cfg.Paths.DBPath = filepath.Join(workspaceOverride, "memory.db")
	}
	if dbPathOverride != "" {
		cfg.Paths.DBPath = dbPathOverride
	}
	if logLevelOverride != "" {
		cfg.Logging.Level = logLevelOverride
	}
	if debugOverride {
		cfg.Logging.Level = "debug"
	}

	if err := ensureWorkspace(cfg.Paths.Workspace); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Paths.DBPath, cfg.Chunk.Size)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sc, err := scanner.New()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	embedder := embed.NewLazy(func() embed.Embedder {
		return embed.Build(context.Background(), cfg.Embedding)
	})

	se := search.New(st, embedder)
	sy := sync.New(st, sc, cfg.Paths.Workspace, cfg.Sessions)
	mu := mutator.New(st, se, sy, cfg.Paths.Workspace)
	es := sync.NewEmbeddingSyncer(st, embedder)

	return &app{
		cfg:       cfg,
		store:     st,
		embedder:  embedder,
		scanner:   sc,
		syncer:    sy,
		search:    se,
		mutator:   mu,
		embedSync: es,
	}, nil
}

func (a *app) mcpServer() *mcp.Server {
	return mcp.NewServer(a.search, a.mutator, a.store, a.syncer, a.embedder, a.cfg, a.cfg.Paths.Workspace)
}

func (a *app) Close() {
	a.embedSync.Stop()
	_ = a.embedder.Close()
	_ = a.store.Close()
}

func ensureWorkspace(workspace string) error {
	return os.MkdirAll(filepath.Join(workspace, "memory"), 0o755)
}
