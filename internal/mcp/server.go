package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	gosdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
	"github.com/XingxingLi2017/memory-mcp/internal/embed"
	memerrors "github.com/XingxingLi2017/memory-mcp/internal/errors"
	"github.com/XingxingLi2017/memory-mcp/internal/mutator"
	"github.com/XingxingLi2017/memory-mcp/internal/search"
	"github.com/XingxingLi2017/memory-mcp/internal/store"
	"github.com/XingxingLi2017/memory-mcp/internal/sync"
	"github.com/XingxingLi2017/memory-mcp/pkg/version"
)

// Fixed thresholds for memory_status's size warnings.
const (
	manyFilesThreshold  = 50
	manyChunksThreshold = 500
	duplicateHashesTopN = 5
)

// Server bridges the MCP host to memory-mcp's Search/Mutator/Store trio.
type Server struct {
	mcp       *gosdkmcp.Server
	search    *search.Engine
	mutator   *mutator.Mutator
	store     *store.Store
	syncer    *sync.Engine
	embedder  embed.Embedder
	cfg       *config.Config
	workspace string
	logger    *slog.Logger
}

// NewServer wires an already-constructed Search/Mutator/Store/Sync quartet
// into an MCP server and registers its six tools.
func NewServer(se *search.Engine, mu *mutator.Mutator, st *store.Store, sy *sync.Engine, embedder embed.Embedder, cfg *config.Config, workspace string) *Server {
	s := &Server{
		search:    se,
		mutator:   mu,
		store:     st,
		syncer:    sy,
		embedder:  embedder,
		cfg:       cfg,
		workspace: workspace,
		logger:    slog.Default(),
	}

	s.mcp = gosdkmcp.NewServer(
		&gosdkmcp.Implementation{Name: "memory-mcp", Version: version.Version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_search",
		Description: "Search stored facts and session history. Hybrid lexical+vector ranking with a recency/substring fallback; use this before asking the user something you might already know.",
	}, s.handleSearch)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_get",
		Description: "Read a memory file (or a line range of one) by path, as returned in a memory_search result.",
	}, s.handleGet)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_status",
		Description: "Report index health: file/chunk/embedding counts, active config, last sync time, and any size warnings.",
	}, s.handleStatus)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_write",
		Description: "Remember a new fact in the ledger. Rejects exact and semantic duplicates rather than storing the same thing twice.",
	}, s.handleWrite)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_update",
		Description: "Replace an existing remembered fact with a new one in place, in the ledger file where it was found; category only narrows the lookup.",
	}, s.handleUpdate)

	gosdkmcp.AddTool(s.mcp, &gosdkmcp.Tool{
		Name:        "memory_forget",
		Description: "Remove a remembered fact (and its evidence file, if any) by content.",
	}, s.handleForget)

	s.logger.Info("mcp tools registered", slog.Int("count", 6))
}

// MCPServer returns the underlying SDK server, for Serve/testing.
func (s *Server) MCPServer() *gosdkmcp.Server { return s.mcp }

// Serve starts the server with the given transport. Only "stdio" is
// implemented; addr is accepted for forward compatibility with a future
// network transport and ignored by stdio.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("starting mcp server", slog.String("transport", transport), slog.String("addr", addr))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &gosdkmcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources held directly by Server (the Store and
// embedder are owned by the caller and closed separately).
func (s *Server) Close() error {
	return nil
}

func (s *Server) handleSearch(ctx context.Context, _ *gosdkmcp.CallToolRequest, in SearchInput) (*gosdkmcp.CallToolResult, SearchOutput, error) {
	requestID := uuid.NewString()
	if strings.TrimSpace(in.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query must not be empty")
	}

	s.logger.Info("memory_search", slog.String("request_id", requestID), slog.String("query", in.Query))

	results, err := s.search.Search(ctx, in.Query, search.Options{
		MaxResults: in.MaxResults,
		MinScore:   in.MinScore,
		TokenMax:   in.TokenMax,
		After:      in.After,
		Before:     in.Before,
	})
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	out := SearchOutput{Results: make([]SearchResultOutput, len(results)), Count: len(results)}
	for i, r := range results {
		out.Results[i] = SearchResultOutput{
			Path: r.Path, StartLine: r.StartLine, EndLine: r.EndLine,
			Score: r.Score, Snippet: r.Snippet, Source: r.Source,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGet(_ context.Context, _ *gosdkmcp.CallToolRequest, in GetInput) (*gosdkmcp.CallToolResult, GetOutput, error) {
	rel, allowed := resolveMemoryPath(s.workspace, in.Path)
	if !allowed {
		err := memerrors.New(memerrors.CodePathNotAllowed, fmt.Sprintf("path %q is not a readable memory file", in.Path))
		return nil, GetOutput{}, MapError(err)
	}

	data, err := os.ReadFile(filepath.Join(s.workspace, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		me := memerrors.New(memerrors.CodeFileNotFound, fmt.Sprintf("%q does not exist", rel))
		return nil, GetOutput{}, MapError(me)
	}
	if err != nil {
		return nil, GetOutput{}, MapError(err)
	}

	text := sliceLines(string(data), in.From, in.Lines)
	return nil, GetOutput{Path: rel, Text: text}, nil
}

// resolveMemoryPath validates path against memory_get's security rule:
// its relative form (against workspace) must be a top-level memory file
// name or begin with "memory/", and its lowercased extension must be
// indexed.
func resolveMemoryPath(workspace, path string) (rel string, ok bool) {
	abs := filepath.Join(workspace, filepath.FromSlash(path))
	r, err := filepath.Rel(workspace, abs)
	if err != nil {
		return "", false
	}
	r = filepath.ToSlash(r)
	if strings.HasPrefix(r, "../") || r == ".." {
		return "", false
	}

	isTopLevel := false
	for _, name := range config.MemoryFileNames {
		if r == name {
			isTopLevel = true
			break
		}
	}
	if !isTopLevel && !strings.HasPrefix(r, "memory/") {
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(r))
	if !config.IndexedExtensions[ext] {
		return "", false
	}
	return r, true
}

// sliceLines returns text starting at the 1-indexed line `from` (default 1)
// for `count` lines (default: to the end). Out-of-range bounds clamp rather
// than error.
func sliceLines(text string, from, count int) string {
	if from <= 0 && count <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	start := from - 1
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := len(lines)
	if count > 0 && start+count < end {
		end = start + count
	}
	return strings.Join(lines[start:end], "\n")
}

// Status reports index health the same way the memory_status tool does,
// for direct use by the CLI's "status" command.
func (s *Server) Status(ctx context.Context) (StatusOutput, error) {
	_, out, err := s.handleStatus(ctx, nil, struct{}{})
	return out, err
}

func (s *Server) handleStatus(ctx context.Context, _ *gosdkmcp.CallToolRequest, _ struct{}) (*gosdkmcp.CallToolResult, StatusOutput, error) {
	stats, err := s.store.Stats()
	if err != nil {
		return nil, StatusOutput{}, MapError(err)
	}

	out := StatusOutput{
		WorkspaceDir:   s.workspace,
		DBPath:         s.cfg.Paths.DBPath,
		Files:          stats.Files,
		MemoryFiles:    stats.MemoryFiles,
		SessionFiles:   stats.SessionFiles,
		Chunks:         stats.Chunks,
		EmbeddedChunks: stats.EmbeddedChunks,
		EmbeddingCache: stats.EmbeddingCache,
		Config: StatusConfig{
			ChunkSize:      s.store.ChunkSize(),
			TokenMax:       s.cfg.Search.TokenMax,
			SessionDays:    s.cfg.Sessions.Days,
			SessionMax:     s.cfg.Sessions.Max,
			EmbeddingModel: s.embedder.ModelName(),
			EmbedderReady:  s.embedder.Available(ctx),
			LogLevel:       s.cfg.Logging.Level,
		},
	}

	if s.syncer != nil {
		if t := s.syncer.LastSyncAt(); !t.IsZero() {
			out.LastSyncAt = t.UTC().Format(time.RFC3339)
		}
	}

	out.Warnings = s.statusWarnings(stats.Files)
	return nil, out, nil
}

func (s *Server) statusWarnings(fileCount int) []string {
	var warnings []string

	if fileCount > manyFilesThreshold {
		warnings = append(warnings, fmt.Sprintf("%d files indexed, above the %d-file comfort threshold", fileCount, manyFilesThreshold))
	}

	if dups, err := s.store.DuplicateHashes(duplicateHashesTopN); err == nil && len(dups) > 0 {
		warnings = append(warnings, fmt.Sprintf("%d chunk hashes are duplicated across distinct paths", len(dups)))
	}

	if big, err := s.store.FilesWithManyChunks(manyChunksThreshold, duplicateHashesTopN); err == nil {
		for path, count := range big {
			warnings = append(warnings, fmt.Sprintf("%s has %d chunks, above the %d-chunk comfort threshold", path, count, manyChunksThreshold))
		}
	}

	return warnings
}

func (s *Server) handleWrite(ctx context.Context, _ *gosdkmcp.CallToolRequest, in WriteInput) (*gosdkmcp.CallToolResult, WriteOutput, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, WriteOutput{}, NewInvalidParamsError("content must not be empty")
	}
	res, err := s.mutator.Write(ctx, in.Content, in.Category, in.Source, in.Evidence)
	if err != nil {
		return nil, WriteOutput{}, MapError(err)
	}
	return nil, WriteOutput{
		Stored: res.Stored, Path: res.Path, Fact: res.Fact,
		EvidencePath: res.EvidencePath, Reason: res.Reason, SimilarEntry: res.SimilarEntry,
	}, nil
}

func (s *Server) handleUpdate(ctx context.Context, _ *gosdkmcp.CallToolRequest, in UpdateInput) (*gosdkmcp.CallToolResult, UpdateOutput, error) {
	if strings.TrimSpace(in.OldContent) == "" || strings.TrimSpace(in.NewContent) == "" {
		return nil, UpdateOutput{}, NewInvalidParamsError("old_content and new_content must not be empty")
	}
	res, err := s.mutator.Update(ctx, in.OldContent, in.NewContent, in.Category, in.Source, in.Evidence)
	if err != nil {
		return nil, UpdateOutput{}, MapError(err)
	}
	return nil, UpdateOutput{
		Updated: res.Updated, Path: res.Path, Old: res.Old, New: res.New,
		EvidencePath: res.EvidencePath, Reason: res.Reason,
	}, nil
}

func (s *Server) handleForget(ctx context.Context, _ *gosdkmcp.CallToolRequest, in ForgetInput) (*gosdkmcp.CallToolResult, ForgetOutput, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ForgetOutput{}, NewInvalidParamsError("content must not be empty")
	}
	res, err := s.mutator.Forget(ctx, in.Content, in.Category)
	if err != nil {
		return nil, ForgetOutput{}, MapError(err)
	}
	return nil, ForgetOutput{
		Removed: res.Removed, Path: res.Path, RemovedContent: res.RemovedContent, Reason: res.Reason,
	}, nil
}
