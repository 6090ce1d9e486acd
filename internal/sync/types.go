// Package sync reconciles the Scanner's view of the workspace with the
// Store: it inserts new files, reindexes changed ones, deletes stale ones,
// and drives the background embedding pass that keeps the vector index
// caught up.
package sync

import (
	"sync"
	"time"

	"github.com/XingxingLi2017/memory-mcp/internal/config"
	"github.com/XingxingLi2017/memory-mcp/internal/scanner"
	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

// memoryCooldown and sessionCooldown are the debounce windows from
// SPEC_FULL.md §4.6: a source is only rescanned once its cooldown has
// elapsed since the last successful sync, unless force is requested.
const (
	memoryCooldown  = 5 * time.Second
	sessionCooldown = 60 * time.Second
)

// embeddingBatchSize caps how many chunks a single embedding-sync iteration
// embeds, matching the spec's "up to 100 chunks" loop bound.
const embeddingBatchSize = 100

// SourceResult summarizes one source's reconciliation pass.
type SourceResult struct {
	Source    string
	Scanned   int
	Reindexed int
	Skipped   int
	Deleted   int
}

// Result is the outcome of a SyncAll call. A nil field means that source's
// cooldown had not yet elapsed and it was not rescanned.
type Result struct {
	Memory   *SourceResult
	Sessions *SourceResult
}

// Engine owns the cooldown state for incremental reconciliation between a
// Scanner and a Store.
type Engine struct {
	store     *store.Store
	scanner   *scanner.Scanner
	workspace string
	sessions  config.SessionsConfig

	mu              sync.Mutex
	lastMemorySync  time.Time
	lastSessionSync time.Time
}

// New creates an Engine.
func New(st *store.Store, sc *scanner.Scanner, workspace string, sessions config.SessionsConfig) *Engine {
	return &Engine{
		store:     st,
		scanner:   sc,
		workspace: workspace,
		sessions:  sessions,
	}
}

// ResetMemoryCooldown clears the memory-source debounce so the next SyncAll
// call rescans it immediately. Called by the Mutator after write/update/forget.
func (e *Engine) ResetMemoryCooldown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastMemorySync = time.Time{}
}

func (e *Engine) dueForMemory(now time.Time, force bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return force || e.lastMemorySync.IsZero() || now.Sub(e.lastMemorySync) >= memoryCooldown
}

func (e *Engine) dueForSessions(now time.Time, force bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return force || e.lastSessionSync.IsZero() || now.Sub(e.lastSessionSync) >= sessionCooldown
}

func (e *Engine) markMemorySynced(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastMemorySync = now
}

func (e *Engine) markSessionsSynced(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSessionSync = now
}

// LastSyncAt returns the more recent of the two sources' last successful
// sync times, or the zero Time if neither has synced yet.
func (e *Engine) LastSyncAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastMemorySync.After(e.lastSessionSync) {
		return e.lastMemorySync
	}
	return e.lastSessionSync
}
