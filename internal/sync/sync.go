package sync

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/XingxingLi2017/memory-mcp/internal/chunk"
	"github.com/XingxingLi2017/memory-mcp/internal/scanner"
	"github.com/XingxingLi2017/memory-mcp/internal/segment"
	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

// SyncAll reconciles both sources whose cooldown has elapsed (or all of
// them, if force is set), returning nil for any source that was skipped.
func (e *Engine) SyncAll(ctx context.Context, force bool) (Result, error) {
	now := time.Now()
	var res Result

	if e.dueForMemory(now, force) {
		entries, err := e.scanner.ScanMemory(e.workspace)
		if err != nil {
			return res, err
		}
		sr, err := e.syncSource(ctx, "memory", entries)
		if err != nil {
			return res, err
		}
		res.Memory = &sr
		e.markMemorySynced(now)
	}

	if e.dueForSessions(now, force) {
		entries, err := e.scanner.ScanSessions(e.sessions)
		if err != nil {
			return res, err
		}
		sr, err := e.syncSource(ctx, "sessions", entries)
		if err != nil {
			return res, err
		}
		res.Sessions = &sr
		e.markSessionsSynced(now)
	}

	return res, nil
}

// syncSource reconciles one source's entries against the store: skip
// unchanged files, reindex new or changed ones, then delete anything no
// longer in the active set.
func (e *Engine) syncSource(ctx context.Context, source string, entries []scanner.Entry) (SourceResult, error) {
	sr := SourceResult{Source: source, Scanned: len(entries)}

	active := make(map[string]bool, len(entries))
	ftsOK := e.store.FTSAvailable()

	for _, entry := range entries {
		active[entry.Path] = true

		existingHash, ok, err := e.store.FileHash(entry.Path, entry.Source)
		if err != nil {
			return sr, err
		}
		if ok && existingHash == entry.Hash {
			sr.Skipped++
			continue
		}

		if err := e.reindexEntry(ctx, entry, ftsOK); err != nil {
			slog.Warn("sync_reindex_failed", slog.String("path", entry.Path), slog.String("source", source), slog.String("error", err.Error()))
			continue
		}
		sr.Reindexed++
	}

	deleted, err := e.store.DeleteFilesNotIn(ctx, source, active, ftsOK)
	if err != nil {
		return sr, err
	}
	sr.Deleted = len(deleted)

	return sr, nil
}

// reindexEntry chunks entry's content and writes it atomically via
// Store.ReindexFile. Sessions are always chunked with the markdown
// strategy regardless of their on-disk extension.
func (e *Engine) reindexEntry(ctx context.Context, entry scanner.Entry, ftsOK bool) error {
	ext := filepath.Ext(entry.Path)
	if entry.Source == "sessions" {
		ext = ".md"
	}

	raw := chunk.New(ext, entry.Content, e.store.ChunkSize())

	storeChunks := make([]store.Chunk, len(raw))
	lexical := make([]store.LexicalEntry, 0, len(raw))
	for i, c := range raw {
		id := chunk.ID(entry.Source, entry.Path, c.StartLine, c.EndLine, c.Hash)
		storeChunks[i] = store.Chunk{
			ID:        id,
			Path:      entry.Path,
			Source:    entry.Source,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Hash:      c.Hash,
			Text:      c.Text,
		}
		if ftsOK {
			lexical = append(lexical, store.LexicalEntry{
				ChunkID:       id,
				SegmentedText: segment.SegmentForIndex(c.Text),
			})
		}
	}

	file := store.File{
		Path:   entry.Path,
		Source: entry.Source,
		Hash:   entry.Hash,
		Mtime:  entry.Mtime,
		Size:   entry.Size,
	}

	return e.store.ReindexFile(ctx, file, storeChunks, lexical, ftsOK)
}
