package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequality/codequality-server/pkg/job"
)

func TestNewWorkerPoolClampsNonPositiveWorkerCount(t *testing.T) {
	p := NewWorkerPool(job.NewStore(), noopDeps, testConfig(), 0)
	assert.Equal(t, 1, p.workerCount)
}

func TestWorkerPoolHealthBeforeStart(t *testing.T) {
	p := NewWorkerPool(job.NewStore(), noopDeps, testConfig(), 3)
	h := p.Health()
	require.NotNil(t, h)
	assert.False(t, h.IsHealthy, "pool with no started workers is not healthy")
	assert.Equal(t, 0, h.TotalWorkers)
}

func TestWorkerPoolStartIsIdempotent(t *testing.T) {
	p := NewWorkerPool(job.NewStore(), noopDeps, testConfig(), 2)
	ctx := t.Context()

	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Start(ctx)) // second call is a documented no-op

	h := p.Health()
	assert.Equal(t, 2, h.TotalWorkers)
	assert.True(t, h.IsHealthy)

	p.Stop()
}

func TestWorkerPoolStopIsGraceful(t *testing.T) {
	p := NewWorkerPool(job.NewStore(), noopDeps, testConfig(), 2)
	require.NoError(t, p.Start(t.Context()))

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop within timeout")
	}
}
