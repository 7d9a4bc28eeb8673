package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/repository"
)

// Runner executes one pipeline attempt.
type Runner interface {
	Run(ctx context.Context, job Job, attemptID string) (*entity.FinalResult, error)
}

type WorkerQueue struct {
	runner Runner
	index  repository.DedupIndex
	logger *slog.Logger

	workers     int
	hardTimeout time.Duration
	softTimeout time.Duration
	maxAttempts int
	retryDelay  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool

	// cancels has its own lock: workers register and unregister on every
	// job, and must not wait behind an Enqueue blocked on a full channel.
	cancelMu sync.Mutex
	cancels  map[uuid.UUID]context.CancelFunc

	notifyFailure FailureNotifier
}

// FailureNotifier is invoked once per permanently failed task, after
// the final attempt. It must not block.
type FailureNotifier func(job Job, cause error)

type Option func(*WorkerQueue)

func WithWorkers(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithHardTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.hardTimeout = d
		}
	}
}
func WithSoftTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.softTimeout = d
		}
	}
}
func WithMaxAttempts(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}
func WithRetryDelay(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d >= 0 {
			q.retryDelay = d
		}
	}
}
func WithFailureNotifier(fn FailureNotifier) Option {
	return func(q *WorkerQueue) { q.notifyFailure = fn }
}

func NewWorkerQueue(runner Runner, index repository.DedupIndex, logger *slog.Logger, opts ...Option) *WorkerQueue {
	q := &WorkerQueue{
		runner:      runner,
		index:       index,
		logger:      logger,
		workers:     4,
		hardTimeout: 30 * time.Minute,
		softTimeout: 25 * time.Minute,
		maxAttempts: 3,
		retryDelay:  time.Minute,
		ch:          make(chan Job, 256),
		cancels:     map[uuid.UUID]context.CancelFunc{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *WorkerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *WorkerQueue) process(workerID int, job Job) {
	attempt := job.Attempt + 1
	attemptID := AttemptID(job.TaskID, job.Attempt)

	if err := q.index.UpdateStatus(context.Background(), job.TaskID, constants.TaskProcessing, attempt, ""); err != nil {
		q.logger.Error("status update failed", "task_id", job.TaskID, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.hardTimeout)
	q.registerCancel(job.TaskID, cancel)

	soft := time.AfterFunc(q.softTimeout, func() {
		q.logger.Warn("soft time limit reached", "task_id", job.TaskID, "attempt_id", attemptID, "limit", q.softTimeout)
	})

	start := time.Now()
	_, err := q.runner.Run(ctx, job, attemptID)
	soft.Stop()
	q.unregisterCancel(job.TaskID)
	cancel()

	elapsed := time.Since(start)
	if err == nil {
		q.logger.Info("task completed", "worker_id", workerID, "task_id", job.TaskID, "attempt", attempt, "elapsed", elapsed)
		if uerr := q.index.UpdateStatus(context.Background(), job.TaskID, constants.TaskCompleted, attempt, ""); uerr != nil {
			q.logger.Error("status update failed", "task_id", job.TaskID, "error", uerr)
		}
		return
	}

	switch {
	case errors.Is(err, common.ErrCancelled) || errors.Is(err, context.Canceled):
		q.logger.Info("task cancelled", "worker_id", workerID, "task_id", job.TaskID, "attempt", attempt)
		q.setFinalStatus(job.TaskID, constants.TaskCancelled, attempt, err)

	case common.Retryable(err) && attempt < q.maxAttempts:
		delay := q.retryDelay * time.Duration(attempt)
		q.logger.Warn("task failed, scheduling retry",
			"worker_id", workerID,
			"task_id", job.TaskID,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if uerr := q.index.UpdateStatus(context.Background(), job.TaskID, constants.TaskQueued, attempt, err.Error()); uerr != nil {
			q.logger.Error("status update failed", "task_id", job.TaskID, "error", uerr)
		}
		retry := job
		retry.Attempt = attempt
		time.AfterFunc(delay, func() {
			if eerr := q.Enqueue(context.Background(), retry); eerr != nil {
				q.logger.Error("retry enqueue failed", "task_id", retry.TaskID, "error", eerr)
				q.setFinalStatus(retry.TaskID, constants.TaskFailed, attempt, err)
			}
		})

	default:
		q.logger.Error("task failed permanently",
			"worker_id", workerID,
			"task_id", job.TaskID,
			"attempt", attempt,
			"error", err,
		)
		q.setFinalStatus(job.TaskID, constants.TaskFailed, attempt, err)
		if q.notifyFailure != nil {
			q.notifyFailure(job, err)
		}
	}
}

func (q *WorkerQueue) setFinalStatus(taskID uuid.UUID, status constants.TaskStatus, attempt int, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := q.index.UpdateStatus(context.Background(), taskID, status, attempt, msg); err != nil {
		q.logger.Error("status update failed", "task_id", taskID, "error", err)
	}
}

// Cancel aborts the running attempt for a task, if any. Queued jobs
// are not removed; the attempt fails fast once a worker picks it up
// and the index already says cancelled.
func (q *WorkerQueue) Cancel(taskID uuid.UUID) bool {
	q.cancelMu.Lock()
	cancel, ok := q.cancels[taskID]
	q.cancelMu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (q *WorkerQueue) registerCancel(taskID uuid.UUID, cancel context.CancelFunc) {
	q.cancelMu.Lock()
	q.cancels[taskID] = cancel
	q.cancelMu.Unlock()
}

func (q *WorkerQueue) unregisterCancel(taskID uuid.UUID) {
	q.cancelMu.Lock()
	delete(q.cancels, taskID)
	q.cancelMu.Unlock()
}

func (q *WorkerQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "task_id", job.TaskID)
		return fmt.Errorf("queue closed")
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued task for processing", "task_id", job.TaskID, "attempt", job.Attempt)
	default:
		q.logger.Warn("queue full, applying backpressure", "task_id", job.TaskID)
		q.ch <- job
	}
	return nil
}

func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

// AttemptID derives the sub-id recorded per attempt: the task id for
// the first attempt, task-retry-N afterwards.
func AttemptID(taskID uuid.UUID, priorAttempts int) string {
	if priorAttempts == 0 {
		return taskID.String()
	}
	return fmt.Sprintf("%s-retry-%d", taskID, priorAttempts)
}
