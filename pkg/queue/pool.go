package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codequality/codequality-server/pkg/job"
)

// WorkerPool manages a fixed pool of queue workers draining a Job Store.
type WorkerPool struct {
	store   *job.Store
	newDeps DepsFactory
	config  Config
	workers []*Worker

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex

	workerCount int
}

// NewWorkerPool creates a new worker pool of workerCount workers, each
// claiming jobs from store and running them through the orchestrator.Deps
// newDeps builds for that job's requested LLM service.
func NewWorkerPool(store *job.Store, newDeps DepsFactory, cfg Config, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		store:       store,
		newDeps:     newDeps,
		config:      cfg,
		workers:     make([]*Worker, 0, workerCount),
		stopCh:      make(chan struct{}),
		workerCount: workerCount,
	}
}

// Start spawns the worker goroutines. Safe to call multiple times;
// subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call")
		return nil
	}
	p.started = true

	slog.Info("starting worker pool", "worker_count", p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		worker := NewWorker(workerID, p.store, p.newDeps, p.config)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	slog.Info("worker pool started")
	return nil
}

// Stop signals all workers to stop and waits for them to finish their
// current job before returning (graceful shutdown).
func (p *WorkerPool) Stop() {
	slog.Info("stopping worker pool gracefully")
	for _, worker := range p.workers {
		worker.Stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	slog.Info("worker pool stopped gracefully")
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		MaxConcurrent: len(p.workers),
		WorkerStats:   workerStats,
	}
}
