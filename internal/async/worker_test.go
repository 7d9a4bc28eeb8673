package async

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/repository"
)

type stubRunner struct {
	attempts atomic.Int32
	run      func(ctx context.Context, job Job, attemptID string) (*entity.FinalResult, error)
}

func (r *stubRunner) Run(ctx context.Context, job Job, attemptID string) (*entity.FinalResult, error) {
	r.attempts.Add(1)
	return r.run(ctx, job, attemptID)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newQueueUnderTest(t *testing.T, runner Runner, index repository.DedupIndex) *WorkerQueue {
	t.Helper()
	q := NewWorkerQueue(runner, index, quietLogger(),
		WithWorkers(1),
		WithQueueSize(8),
		WithMaxAttempts(3),
		WithRetryDelay(time.Millisecond),
		WithHardTimeout(time.Second),
		WithSoftTimeout(900*time.Millisecond),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	})
	return q
}

func registerTask(t *testing.T, index repository.DedupIndex) Job {
	t.Helper()
	taskID := uuid.New()
	require.NoError(t, index.Register(context.Background(), repository.TaskRecord{
		TaskID:      taskID,
		ContentHash: "hash-" + taskID.String(),
		FilePath:    "/in/edital.pdf",
		Status:      constants.TaskQueued,
	}))
	return Job{TaskID: taskID, FilePath: "/in/edital.pdf", SubmittedAt: time.Now()}
}

func waitForStatus(t *testing.T, index repository.DedupIndex, taskID uuid.UUID, want constants.TaskStatus) *repository.TaskRecord {
	t.Helper()
	var rec *repository.TaskRecord
	require.Eventually(t, func() bool {
		got, err := index.GetTask(context.Background(), taskID)
		if err != nil {
			return false
		}
		rec = got
		return got.Status == want
	}, 5*time.Second, 5*time.Millisecond)
	return rec
}

func TestWorkerSuccess(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	runner := &stubRunner{run: func(context.Context, Job, string) (*entity.FinalResult, error) {
		return &entity.FinalResult{}, nil
	}}
	q := newQueueUnderTest(t, runner, index)

	job := registerTask(t, index)
	require.NoError(t, q.Enqueue(context.Background(), job))

	rec := waitForStatus(t, index, job.TaskID, constants.TaskCompleted)
	assert.Equal(t, 1, rec.Attempt)
	assert.EqualValues(t, 1, runner.attempts.Load())
}

func TestWorkerRetriesTransientErrorsUpToCeiling(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	runner := &stubRunner{run: func(context.Context, Job, string) (*entity.FinalResult, error) {
		return nil, fmt.Errorf("%w: connection refused", common.ErrAIUnavailable)
	}}
	q := newQueueUnderTest(t, runner, index)

	job := registerTask(t, index)
	require.NoError(t, q.Enqueue(context.Background(), job))

	rec := waitForStatus(t, index, job.TaskID, constants.TaskFailed)
	assert.Equal(t, 3, rec.Attempt)
	assert.EqualValues(t, 3, runner.attempts.Load())
	assert.Contains(t, rec.LastError, "ai analysis unavailable")
}

func TestWorkerRecoversOnRetry(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	runner := &stubRunner{}
	runner.run = func(context.Context, Job, string) (*entity.FinalResult, error) {
		if runner.attempts.Load() == 1 {
			return nil, fmt.Errorf("%w: timeout", common.ErrOCRUnavailable)
		}
		return &entity.FinalResult{}, nil
	}
	q := newQueueUnderTest(t, runner, index)

	job := registerTask(t, index)
	require.NoError(t, q.Enqueue(context.Background(), job))

	rec := waitForStatus(t, index, job.TaskID, constants.TaskCompleted)
	assert.Equal(t, 2, rec.Attempt)
}

func TestWorkerDoesNotRetryValidationErrors(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	runner := &stubRunner{run: func(context.Context, Job, string) (*entity.FinalResult, error) {
		return nil, fmt.Errorf("%w: not a pdf", common.ErrValidation)
	}}
	q := newQueueUnderTest(t, runner, index)

	job := registerTask(t, index)
	require.NoError(t, q.Enqueue(context.Background(), job))

	rec := waitForStatus(t, index, job.TaskID, constants.TaskFailed)
	assert.Equal(t, 1, rec.Attempt)
	assert.EqualValues(t, 1, runner.attempts.Load())
}

func TestWorkerCancellation(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	started := make(chan struct{})
	runner := &stubRunner{run: func(ctx context.Context, _ Job, _ string) (*entity.FinalResult, error) {
		close(started)
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", common.ErrCancelled, ctx.Err())
	}}
	q := newQueueUnderTest(t, runner, index)

	job := registerTask(t, index)
	require.NoError(t, q.Enqueue(context.Background(), job))

	<-started
	assert.True(t, q.Cancel(job.TaskID))

	rec := waitForStatus(t, index, job.TaskID, constants.TaskCancelled)
	assert.Equal(t, 1, rec.Attempt)

	// A second cancel finds nothing running.
	assert.False(t, q.Cancel(job.TaskID))
}

func TestEnqueueBackpressureDoesNotStallWorkers(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	gate := make(chan struct{})
	runner := &stubRunner{run: func(context.Context, Job, string) (*entity.FinalResult, error) {
		<-gate
		return &entity.FinalResult{}, nil
	}}
	q := NewWorkerQueue(runner, index, quietLogger(),
		WithWorkers(1),
		WithQueueSize(1),
		WithMaxAttempts(1),
		WithHardTimeout(5*time.Second),
		WithSoftTimeout(4*time.Second),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	})

	// First job occupies the single worker, second fills the buffer, and
	// the third hits the backpressure path while the worker still churns
	// through register/unregister on every pickup.
	jobs := []Job{registerTask(t, index), registerTask(t, index), registerTask(t, index)}
	require.NoError(t, q.Enqueue(context.Background(), jobs[0]))
	require.NoError(t, q.Enqueue(context.Background(), jobs[1]))

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(context.Background(), jobs[2]) }()

	close(gate)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue never returned under backpressure")
	}

	for _, job := range jobs {
		waitForStatus(t, index, job.TaskID, constants.TaskCompleted)
	}
	assert.EqualValues(t, 3, runner.attempts.Load())
}

func TestAttemptID(t *testing.T) {
	id := uuid.MustParse("2d1f4e9a-0000-0000-0000-000000000000")
	assert.Equal(t, id.String(), AttemptID(id, 0))
	assert.Equal(t, id.String()+"-retry-2", AttemptID(id, 2))
}
