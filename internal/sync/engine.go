// Package sync implements the per-source pullers that keep the Store
// current with each upstream MCP server registry, and the fan-out engine
// that runs them with all-settled semantics.
package sync

import (
	"context"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result records one puller's outcome for the caller (the Sync Gate) and
// for logging; it is never an error return, since a source's failure must
// never fail the whole SyncAll call.
type Result struct {
	Source  store.Source
	Count   int
	Err     error
	Elapsed time.Duration
}

// Puller pulls one upstream registry's catalog into the Store. Source
// identifies which registry it speaks for; Pull does the paginated fetch,
// normalize, and upsert work, honoring ctx cancellation between pages.
type Puller interface {
	Source() store.Source
	Pull(ctx context.Context, st *store.Store) (count int, err error)
}

// Engine fans SyncAll out across every registered puller.
type Engine struct {
	pullers []Puller
	store   *store.Store
	logger  *zap.SugaredLogger
}

// NewEngine builds an Engine with the standard three pullers. Callers that
// want to inject fakes for testing can use NewEngineForTest instead.
func NewEngine(st *store.Store, logger *zap.SugaredLogger) *Engine {
	return newEngineWithPullers(st, logger, []Puller{
		NewOfficialPuller(logger),
		NewGlamaPuller(logger),
		NewSmitheryPuller(logger),
	})
}

func newEngineWithPullers(st *store.Store, logger *zap.SugaredLogger, pullers []Puller) *Engine {
	return &Engine{pullers: pullers, store: st, logger: logger}
}

// NewEngineForTest builds an Engine with caller-supplied pullers, so other
// packages' tests (e.g. internal/gate) can exercise SyncAll's fan-out
// behavior against a fake Puller instead of the real HTTP-backed ones.
func NewEngineForTest(pullers []Puller, st *store.Store, logger *zap.SugaredLogger) *Engine {
	return newEngineWithPullers(st, logger, pullers)
}

// SyncAll runs every puller concurrently. Each puller's failure is
// captured into its own Result; SyncAll itself never returns a non-nil
// error for an individual source's failure (all-settled semantics) - the
// returned error is reserved for an unrecoverable setup failure shared
// across all pullers, which in practice never happens since pullers own
// their own HTTP clients.
func (e *Engine) SyncAll(ctx context.Context) (map[store.Source]Result, error) {
	runID := uuid.New().String()
	results := make(map[store.Source]Result, len(e.pullers))

	type outcome struct {
		source store.Source
		result Result
	}
	outcomes := make(chan outcome, len(e.pullers))

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range e.pullers {
		p := p
		g.Go(func() error {
			start := time.Now()
			count, err := p.Pull(gctx, e.store)
			elapsed := time.Since(start)

			status := "ok"
			errMsg := ""
			if err != nil {
				status = "error"
				errMsg = err.Error()
				e.logger.Warnw("source sync failed", "run_id", runID, "source", p.Source(), "error", err, "count", count)
			} else {
				e.logger.Infow("source sync completed", "run_id", runID, "source", p.Source(), "count", count, "elapsed", elapsed)
			}

			if logErr := e.store.UpdateSyncLog(p.Source(), count, status, errMsg); logErr != nil {
				e.logger.Errorw("failed to write sync log", "run_id", runID, "source", p.Source(), "error", logErr)
			}

			outcomes <- outcome{source: p.Source(), result: Result{Source: p.Source(), Count: count, Err: err, Elapsed: elapsed}}
			return nil // never fail the group - independent failure per source
		})
	}

	// g.Wait only ever returns nil per the comment above, but its ctx
	// tracking (gctx) still lets a caller-initiated cancellation
	// propagate to every in-flight Pull.
	_ = g.Wait()
	close(outcomes)

	for o := range outcomes {
		results[o.source] = o.result
	}
	return results, nil
}
