package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/codequality/codequality-server/pkg/job"
	"github.com/codequality/codequality-server/pkg/orchestrator"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// DepsFactory builds the orchestrator.Deps for one claimed job, resolving
// its requested LLM service (stored on SourceRef at submission time) since
// different jobs in the same queue may name different services.
type DepsFactory func(job.SourceRef) orchestrator.Deps

// Worker is a single queue worker that polls the Job Store for pending
// jobs and drives each through the orchestrator.
type Worker struct {
	id      string
	store   *job.Store
	newDeps DepsFactory
	config  Config
	stopCh  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// Config is the subset of queue tuning knobs a worker needs, mirrored from
// config.QueueConfig so this package doesn't import the config package
// directly for a handful of fields.
type Config struct {
	PollInterval       time.Duration
	PollIntervalJitter time.Duration
	JobTimeout         time.Duration
}

// NewWorker creates a new queue worker.
func NewWorker(id string, store *job.Store, newDeps DepsFactory, cfg Config) *Worker {
	return &Worker{
		id:           id,
		store:        store,
		newDeps:      newDeps,
		config:       cfg,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish. It is safe
// to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, job.ErrNoPending) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the next pending job and runs it to completion.
// The job store owns atomicity of the claim itself (ClaimNext flips
// StatusPending to StatusRunning under its own lock), so there is no
// separate capacity check here: pool size bounds concurrency directly,
// since one worker processes at most one job at a time.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	j, err := w.store.ClaimNext()
	if err != nil {
		return err
	}

	log := slog.With("job_id", j.ID, "worker_id", w.id)
	log.Info("job claimed")

	w.setStatus(WorkerStatusWorking, j.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout())
	j.SetCancelFunc(cancel)
	defer cancel()

	orch := w.newDeps(j.Source)
	var runErr error
	if files := j.PendingFiles(); len(files) > 0 {
		runErr = orch.RunWithFiles(jobCtx, j, files)
	} else {
		runErr = orch.Run(jobCtx, j)
	}

	if runErr != nil {
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			j.SetError(fmt.Errorf("job timed out after %v", w.jobTimeout()))
		} else if !errors.Is(jobCtx.Err(), context.Canceled) {
			j.SetError(runErr)
		}
		log.Error("job processing failed", "error", runErr)
	} else {
		log.Info("job processing complete")
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	return nil
}

func (w *Worker) jobTimeout() time.Duration {
	if w.config.JobTimeout > 0 {
		return w.config.JobTimeout
	}
	return 10 * time.Minute
}

// pollInterval returns the poll duration with jitter, spreading workers'
// store polls so they don't all wake in lockstep.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
