package job

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a job id has no matching record.
var ErrNotFound = errors.New("job: not found")

// ErrNoPending is returned by ClaimNext when no job is waiting to run.
var ErrNoPending = errors.New("job: no pending job available")

// Store is the in-memory, mutex-protected Job Store (C9). Every operation
// is atomic with respect to other operations on the same id; the lock is
// never held across I/O or LLM calls — callers take a Clone() snapshot,
// release the lock implicitly, and do their blocking work outside it.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore constructs an empty Job Store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Create allocates a new job in StatusPending and inserts it.
func (s *Store) Create(src SourceRef) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	j := newJob(id, src)
	s.jobs[id] = j
	return j
}

// Get returns a snapshot of the job, or ErrNotFound.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j.Clone(), nil
}

// Handle returns the live *Job for mutation by the owning worker. Only the
// worker executing a job's pipeline may call this; everyone else must use
// Get for a read-only snapshot.
func (s *Store) Handle(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, nil
}

// List returns a snapshot of every job, most recently created first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

// Delete removes a job unconditionally (administrative).
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.jobs, id)
	return nil
}

// ClaimNext atomically finds one StatusPending job, flips it to
// StatusRunning, and returns its live handle. Used by queue workers
// polling for work; replaces the SQL "FOR UPDATE SKIP LOCKED" claim the
// teacher used against Postgres, since there is no database here.
func (s *Store) ClaimNext() (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		j.mu.Lock()
		if j.Status == StatusPending {
			j.Status = StatusRunning
			j.mu.Unlock()
			return j, nil
		}
		j.mu.Unlock()
	}
	return nil, ErrNoPending
}
