// Package syncengine is the sync orchestrator: it drives the bootstrap /
// incremental push / pull cycle, the event-driven per-record schedule*
// entry points, the periodic timer, and shutdown, all funneled through a
// single-slot task queue so no two cycles ever overlap.
package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/memsync/internal/backend"
	"github.com/anthropics/memsync/internal/document"
	"github.com/anthropics/memsync/internal/importer"
	"github.com/anthropics/memsync/internal/localstore"
	"github.com/anthropics/memsync/internal/state"
	"github.com/anthropics/memsync/internal/taskqueue"
	"github.com/rs/zerolog"
)

// Overlap windows: subtracted from a cursor before querying, to tolerate
// clock jitter and out-of-order epoch assignment. Correctness relies on
// idempotent upsert and import dedup, not on these being exact.
const (
	LocalOverlapMs  = 5000
	RemoteOverlapMs = 5000

	defaultQueueCapacity = 64
)

// TargetState is the per-target cursor record, re-exported from
// internal/state so callers of this package need not import it directly.
type TargetState = state.TargetState

// Options configures a new Engine.
type Options struct {
	Backend        backend.Backend
	Store          *localstore.Store
	State          *state.Store
	SyncIntervalMs int
	Log            zerolog.Logger
}

// Engine is the sync orchestrator for a single backend target.
type Engine struct {
	backend  backend.Backend
	store    *localstore.Store
	state    *state.Store
	importer *importer.Importer
	log      zerolog.Logger

	queue    *taskqueue.Queue
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	timer  *time.Ticker
	timerDone chan struct{}
}

// New constructs an Engine. It does not start the periodic timer or run
// any cycle; call Start for that.
func New(opts Options) (*Engine, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("syncengine: backend is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("syncengine: local store is required")
	}
	if opts.State == nil {
		return nil, fmt.Errorf("syncengine: state store is required")
	}
	interval := opts.SyncIntervalMs
	if interval <= 0 {
		interval = 30000
	}

	ctx, cancel := context.WithCancel(context.Background())
	log := opts.Log.With().Str("backend", opts.Backend.Label()).Logger()

	e := &Engine{
		backend:  opts.Backend,
		store:    opts.Store,
		state:    opts.State,
		importer: importer.New(opts.Store.DB(), log),
		log:      log,
		queue:    taskqueue.New(ctx, log, defaultQueueCapacity),
		interval: time.Duration(interval) * time.Millisecond,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := opts.State.WatchExternalChanges(ctx, func() {
		log.Warn().Msg("state file changed on disk; reloading cursors from disk")
		opts.State.Reload()
	}); err != nil {
		log.Warn().Err(err).Msg("failed to watch state file for external changes; continuing without it")
	}

	return e, nil
}

// Start launches the periodic timer, enqueuing a full cycle
// (reason="interval") every SyncIntervalMs.
func (e *Engine) Start() {
	e.timer = time.NewTicker(e.interval)
	e.timerDone = make(chan struct{})
	go func() {
		defer close(e.timerDone)
		for {
			select {
			case <-e.ctx.Done():
				return
			case <-e.timer.C:
				e.queue.Submit(func(ctx context.Context) error {
					return e.performSynchronization(ctx, "interval", false)
				})
			}
		}
	}()
}

// Bootstrap enqueues a full cycle with bootstrap requested. This is
// usually the first call after construction.
func (e *Engine) Bootstrap() {
	e.queue.Submit(func(ctx context.Context) error {
		return e.performSynchronization(ctx, "bootstrap", true)
	})
}

// SyncNow enqueues a full cycle (bootstrap only if not yet complete).
func (e *Engine) SyncNow() {
	e.queue.Submit(func(ctx context.Context) error {
		return e.performSynchronization(ctx, "manual", true)
	})
}

// Flush blocks until every task submitted before this call has finished.
func (e *Engine) Flush() {
	e.queue.Flush()
}

// BackendLabel returns the human-readable identity of the configured
// backend, for operator-facing status output.
func (e *Engine) BackendLabel() string {
	return e.backend.Label()
}

// Close stops the timer, drains the queue, and closes the backend.
func (e *Engine) Close() error {
	if e.timer != nil {
		e.timer.Stop()
	}
	// Drain before cancelling: pending tasks run with a live context.
	e.queue.Close()
	e.cancel()
	if e.timer != nil {
		<-e.timerDone
	}
	return e.backend.Close(context.Background())
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// dedupeByIDKeepingHighest deduplicates a bootstrap/push batch by id,
// keeping the highest updatedAtEpoch.
func dedupeByIDKeepingHighest(docs []document.Document) []document.Document {
	byID := make(map[string]document.Document, len(docs))
	for _, d := range docs {
		if existing, ok := byID[d.ID]; !ok || d.UpdatedAtEpoch > existing.UpdatedAtEpoch {
			byID[d.ID] = d
		}
	}
	out := make([]document.Document, 0, len(byID))
	for _, d := range byID {
		out = append(out, d)
	}
	return out
}
