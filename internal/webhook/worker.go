package webhook

import (
	"context"
	"log/slog"
	"time"

	"github.com/ntnkb/ntnkb/internal/sync"
)

// SyncRunner runs one full pipeline pass over the workspace root.
type SyncRunner interface {
	Run(ctx context.Context, rootPageID string) (*sync.Report, error)
}

// SyncWorker runs background syncs in response to webhook notifications.
// Rapid notification bursts coalesce into a single run.
type SyncWorker struct {
	runner     SyncRunner
	rootPageID string
	logger     *slog.Logger
	syncDelay  time.Duration
	notify     chan struct{}
}

// SyncWorkerOption configures the SyncWorker.
type SyncWorkerOption func(*SyncWorker)

// WithSyncDelay sets the debounce delay before processing.
// This allows multiple rapid notifications to coalesce into a single sync.
func WithSyncDelay(d time.Duration) SyncWorkerOption {
	return func(w *SyncWorker) {
		w.syncDelay = d
	}
}

// NewSyncWorker creates a new sync worker.
func NewSyncWorker(runner SyncRunner, rootPageID string, logger *slog.Logger, opts ...SyncWorkerOption) *SyncWorker {
	worker := &SyncWorker{
		runner:     runner,
		rootPageID: rootPageID,
		logger:     logger,
		notify:     make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(worker)
	}

	return worker
}

// Notify signals that there is new work to process.
// This is non-blocking - if a notification is already pending, it's a no-op.
func (w *SyncWorker) Notify() {
	select {
	case w.notify <- struct{}{}:
		w.logger.Debug("sync worker notified")
	default:
		w.logger.Debug("sync worker notification skipped (already pending)")
	}
}

// Start runs the sync worker until the context is canceled.
// This method blocks and should be called in a goroutine.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.InfoContext(ctx, "sync worker started", "sync_delay", w.syncDelay)

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "sync worker stopping")
			return
		case <-w.notify:
			w.processWithDelay(ctx)
		}
	}
}

// processWithDelay waits for the sync delay (if configured) then runs the
// sync. Late notifications arriving during the delay are absorbed by the
// pending slot, so a burst still yields one run.
func (w *SyncWorker) processWithDelay(ctx context.Context) {
	if w.syncDelay > 0 {
		w.logger.DebugContext(ctx, "waiting for sync delay", "delay", w.syncDelay)

		timer := time.NewTimer(w.syncDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			// Continue to process
		}

		// Absorb any notification that arrived during the delay: the run
		// below already covers it.
		select {
		case <-w.notify:
		default:
		}
	}

	w.runSync(ctx)
}

// runSync executes one pipeline run. Failures are logged, never fatal: the
// next webhook event retries naturally.
func (w *SyncWorker) runSync(ctx context.Context) {
	w.logger.InfoContext(ctx, "sync worker running pipeline", "root_page_id", w.rootPageID)

	report, err := w.runner.Run(ctx, w.rootPageID)
	if err != nil {
		w.logger.ErrorContext(ctx, "background sync failed", "error", err)
		return
	}

	w.logger.InfoContext(ctx, "background sync completed",
		"total", report.Total,
		"created", report.Created,
		"updated", report.Updated,
		"failed", report.Failed)
}
