package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReconcileFunc re-derives every report status and returns how many reports
// were checked and changed
type ReconcileFunc func(ctx context.Context) (checked, changed int, err error)

// StatusWorker periodically re-derives report statuses from recorded reviews
// so rows written outside the review flow converge.
type StatusWorker struct {
	interval  time.Duration
	reconcile ReconcileFunc
	logger    *zap.Logger

	mu        sync.RWMutex
	runs      int
	lastError error
}

// NewStatusWorker creates a worker running reconcile every interval
func NewStatusWorker(interval time.Duration, reconcile ReconcileFunc, logger *zap.Logger) *StatusWorker {
	return &StatusWorker{
		interval:  interval,
		reconcile: reconcile,
		logger:    logger,
	}
}

// Name returns the worker name for identification
func (w *StatusWorker) Name() string {
	return "StatusWorker"
}

// Run ticks until ctx is cancelled
func (w *StatusWorker) Run(ctx context.Context) error {
	w.logger.Info("StatusWorker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("StatusWorker stopped", zap.Int("runs", w.Runs()))
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *StatusWorker) runOnce(ctx context.Context) {
	checked, changed, err := w.reconcile(ctx)

	w.mu.Lock()
	w.runs++
	w.lastError = err
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Status reconciliation failed", zap.Error(err))
		return
	}
	if changed > 0 {
		w.logger.Info("Status reconciliation changed reports",
			zap.Int("checked", checked),
			zap.Int("changed", changed))
	}
}

// Runs returns how many reconciliations have completed
func (w *StatusWorker) Runs() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.runs
}

// LastError returns the error of the latest run, if any
func (w *StatusWorker) LastError() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}
