// Package gate implements the sync gate: it ensures the
// Store is populated and not older than a configured staleness window
// before any externally triggered operation runs, serializing concurrent
// sync attempts behind a single process-wide lock so waiters observe one
// in-flight sync rather than each triggering their own.
package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/store"
	syncengine "github.com/mcpfinder/mcpfinder/internal/sync"

	"go.uber.org/zap"
)

// Gate owns the single process-wide lock that serializes sync runs.
type Gate struct {
	store  *store.Store
	engine *syncengine.Engine
	maxAge atomic.Int64 // time.Duration nanoseconds, set via SetMaxAge
	logger *zap.SugaredLogger

	mu      sync.Mutex
	syncing bool
	done    chan struct{} // closed when the in-flight sync completes
}

// New builds a Gate guarding st, triggering engine.SyncAll when the store
// is empty or the official registry's last sync is older than maxAge.
func New(st *store.Store, engine *syncengine.Engine, maxAge time.Duration, logger *zap.SugaredLogger) *Gate {
	g := &Gate{store: st, engine: engine, logger: logger}
	g.maxAge.Store(int64(maxAge))
	return g
}

// SetMaxAge updates the staleness window, letting a config hot-reload
// (internal/config.Watch) adjust it without rebuilding the Gate.
func (g *Gate) SetMaxAge(maxAge time.Duration) {
	g.maxAge.Store(int64(maxAge))
}

// EnsureFresh returns immediately when nothing needs syncing; otherwise
// it either starts a sync (and waits for it) or, if one is already in
// flight, waits for that one instead of starting a redundant second run.
// If the in-flight sync fails for a source, EnsureFresh still returns
// nil - callers proceed with whatever data exists.
func (g *Gate) EnsureFresh(ctx context.Context) error {
	stale, err := g.isStale()
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}

	g.mu.Lock()
	if g.syncing {
		done := g.done
		g.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.syncing = true
	done := make(chan struct{})
	g.done = done
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.syncing = false
		g.mu.Unlock()
		close(done)
	}()

	results, err := g.engine.SyncAll(ctx)
	if err != nil {
		g.logger.Errorw("syncAll returned an error", "error", err)
		return nil
	}
	for source, result := range results {
		if result.Err != nil {
			g.logger.Warnw("source sync failed, continuing with existing data", "source", source, "error", result.Err)
		}
	}
	return nil
}

// isStale reports whether a sync is needed: an empty store, or no
// official-registry sync yet, or one older than maxAge.
func (g *Gate) isStale() (bool, error) {
	count, err := g.store.Count()
	if err != nil {
		return false, err
	}
	if count == 0 {
		return true, nil
	}

	log, err := g.store.GetSyncLog(store.SourceOfficial)
	if err != nil {
		return false, err
	}
	if log == nil {
		return true, nil
	}
	return time.Since(log.LastSyncedAt) > time.Duration(g.maxAge.Load()), nil
}
