package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a background loop. Run blocks until ctx is cancelled.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// WorkerManager runs registered workers and waits for them on shutdown
type WorkerManager struct {
	workers []Worker
	logger  *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{
		workers: make([]Worker, 0),
		logger:  logger,
	}
}

// Register adds a worker to be managed. Workers registered after StartAll
// are not started.
func (m *WorkerManager) Register(worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, worker)
	m.logger.Info("Worker registered",
		zap.String("worker_name", worker.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll launches every registered worker in its own goroutine
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("workers already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.isRunning = true

	m.logger.Info("Starting all workers", zap.Int("count", len(m.workers)))

	for _, w := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()
			if err := w.Run(runCtx); err != nil && runCtx.Err() == nil {
				m.logger.Error("Worker exited with error",
					zap.String("worker_name", w.Name()),
					zap.Error(err))
			}
		}(w)
	}

	return nil
}

// StopAll cancels the workers and waits for them to return
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.logger.Info("All workers stopped", zap.Int("count", m.GetWorkerCount()))
	return nil
}

// GetWorkerCount returns the number of registered workers
func (m *WorkerManager) GetWorkerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning returns whether workers are running
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}
