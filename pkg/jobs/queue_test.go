package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "generate", Payload: 42}))
	select {
	case job := <-done:
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, 42, job.Payload)
		assert.Zero(t, job.Attempt)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestQueueSkipsRetriesForPermanentErrors(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(errors.New("bad input"))
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueRejectsWhenFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if job.ID == "first" {
			close(started)
			<-release
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "first"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "second"}))
	err := q.Enqueue(Job{ID: "third"})
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)
}

func TestQueueRequiresStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "y"}))
}

func TestQueueAppliesJobTimeout(t *testing.T) {
	done := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		done <- ctx.Err()
		return Permanent(ctx.Err())
	}, QueueConfig{JobTimeout: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "slow"}))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("job timeout not applied")
	}
}

type dropRecorder struct {
	mu    sync.Mutex
	jobs  []string
	errs  []error
	calls chan struct{}
}

func newDropRecorder() *dropRecorder {
	return &dropRecorder{calls: make(chan struct{}, 8)}
}

func (r *dropRecorder) record(job Job, err error) {
	r.mu.Lock()
	r.jobs = append(r.jobs, job.ID)
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.calls <- struct{}{}
}

func (r *dropRecorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.jobs...), append([]error(nil), r.errs...)
}

func TestQueueStopWaitsForPendingRetry(t *testing.T) {
	drops := newDropRecorder()
	failed := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		close(failed)
		return errors.New("transient")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Hour, OnDrop: drops.record})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	<-failed
	q.Stop()

	ids, errs := drops.snapshot()
	require.Equal(t, []string{"job-1"}, ids)
	assert.ErrorIs(t, errs[0], ErrQueueStopped)
}

func TestQueueDropsRetryWhenRequeueFails(t *testing.T) {
	drops := newDropRecorder()
	failed := make(chan struct{})
	blocking := make(chan struct{})
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		switch job.ID {
		case "flaky":
			close(failed)
			return errors.New("transient")
		case "block":
			close(blocking)
			<-release
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1, MaxRetries: 1, RetryDelay: 200 * time.Millisecond, OnDrop: drops.record})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))
	<-failed
	require.NoError(t, q.Enqueue(Job{ID: "block"}))
	<-blocking
	require.NoError(t, q.Enqueue(Job{ID: "filler"}))

	select {
	case <-drops.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("retry was not dropped")
	}
	close(release)

	ids, errs := drops.snapshot()
	require.Equal(t, []string{"flaky"}, ids)
	assert.ErrorIs(t, errs[0], ErrQueueFull)
}

func TestQueueStopDropsBufferedJobs(t *testing.T) {
	drops := newDropRecorder()
	var handled int32
	started := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if job.ID == "first" {
			close(started)
			<-ctx.Done()
			return Permanent(ctx.Err())
		}
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 2, OnDrop: drops.record})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "first"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "second"}))
	require.NoError(t, q.Enqueue(Job{ID: "third"}))
	q.Stop()

	ids, errs := drops.snapshot()
	assert.Equal(t, 2, len(ids)+int(atomic.LoadInt32(&handled)))
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrQueueStopped)
	}
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("x")))
}
