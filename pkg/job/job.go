// Package job defines the analysis Job entity and its in-memory store.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/codequality/codequality-server/pkg/model"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status will never transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Result holds everything an analysis run produces. Stages populate it
// incrementally as the orchestrator advances the job through the pipeline.
type Result struct {
	Files      []model.WorkingFile          `json:"-"` // raw bytes never serialized into API responses
	Discovered *model.DiscoveredSet         `json:"discovered,omitempty"`
	Issues     []model.CodeIssue            `json:"issues,omitempty"`
	Metrics    map[string]model.FileMetrics `json:"metrics,omitempty"`
	Metadata   map[string]model.FileMeta    `json:"metadata,omitempty"`
	Graph      *model.DependencyGraph       `json:"dependency_graph,omitempty"`
	Summary    *model.AnalysisSummary       `json:"summary,omitempty"`
	// ExecutiveSummary is the AI review's prose summary (C5's executive_summary
	// field), carried through so later reporting reuses the review's own words
	// instead of generating an independent narrative.
	ExecutiveSummary string   `json:"executive_summary,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

// Job is a single analysis run: one source submission moving through the
// discovery -> analyze -> enhance -> review -> render pipeline.
type Job struct {
	ID        string
	Source    SourceRef
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	Error     string
	Result    Result

	mu         sync.RWMutex
	cancelFunc context.CancelFunc
}

// SourceRef identifies where a job's source tree came from and the
// submission-time parameters the worker needs to build this job's
// orchestrator.Deps (each job may name a different LLM service).
type SourceRef struct {
	Kind                  string // "remote" or "upload"
	Location              string // URL/repo reference, or upload bundle id
	IncludeExt            []string
	Service               string // "llm_a", "llm_b", or "" for registry default
	MaxFiles              int
	IncludeExternalReport bool
}

func newJob(id string, src SourceRef) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Source:    src,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus transitions the job's status under lock.
func (j *Job) SetStatus(s Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = s
	j.UpdatedAt = time.Now()
}

// SetError records a failure and moves the job to StatusFailed.
func (j *Job) SetError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Error = err.Error()
	j.Status = StatusFailed
	j.UpdatedAt = time.Now()
}

// SetResult replaces the job's accumulated result under lock.
func (j *Job) SetResult(r Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = r
	j.UpdatedAt = time.Now()
}

// PendingFiles returns the working set stashed on the job before it was
// queued, for upload jobs whose bytes were fetched at request time by the
// API handler and can't be re-fetched later from a SourceRef alone.
func (j *Job) PendingFiles() []model.WorkingFile {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Result.Files
}

// SetCancelFunc stores the cancel function for the context driving this
// job's pipeline run, so Cancel can later stop it.
func (j *Job) SetCancelFunc(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelFunc = cancel
}

// Cancel invokes the job's cancel function, if any, and marks it cancelled.
// Returns false if the job had already reached a terminal state.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return false
	}
	if j.cancelFunc != nil {
		j.cancelFunc()
	}
	j.Status = StatusCancelled
	j.UpdatedAt = time.Now()
	return true
}

// Clone returns a value-type snapshot safe to hand to callers outside the
// store's lock. The cancel function is deliberately not copied.
func (j *Job) Clone() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := Job{
		ID:        j.ID,
		Source:    j.Source,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
		Error:     j.Error,
	}
	out.Result.Issues = append([]model.CodeIssue(nil), j.Result.Issues...)
	if j.Result.Metrics != nil {
		out.Result.Metrics = make(map[string]model.FileMetrics, len(j.Result.Metrics))
		for k, v := range j.Result.Metrics {
			out.Result.Metrics[k] = v
		}
	}
	if j.Result.Metadata != nil {
		out.Result.Metadata = make(map[string]model.FileMeta, len(j.Result.Metadata))
		for k, v := range j.Result.Metadata {
			out.Result.Metadata[k] = v
		}
	}
	out.Result.Graph = j.Result.Graph
	out.Result.Summary = j.Result.Summary
	out.Result.Errors = append([]string(nil), j.Result.Errors...)
	return out
}
