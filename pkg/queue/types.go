// Package queue provides the worker pool that drains the Job Store: a
// fixed set of goroutines claiming pending jobs and driving them through
// the orchestrator, with graceful shutdown and per-worker health
// reporting.
package queue

import (
	"errors"
	"time"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no pending jobs are in the store.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrAtCapacity indicates the global concurrent job limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	MaxConcurrent int            `json:"max_concurrent"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}
