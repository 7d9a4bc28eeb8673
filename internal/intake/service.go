package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/async"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/repository"
)

// SubmitResult tells the caller what happened to a submission: either
// a new task was queued or an existing one already owns the content.
type SubmitResult struct {
	TaskID    uuid.UUID
	Status    constants.TaskStatus
	Duplicate bool
}

// Service is the single entry point for new documents. Every path into
// the system (watcher, gRPC, CLI) goes through Submit so deduplication
// is applied uniformly.
type Service struct {
	index repository.DedupIndex
	queue async.Queue
	log   *slog.Logger
}

func NewService(index repository.DedupIndex, queue async.Queue, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{index: index, queue: queue, log: log}
}

// Submit hashes the file, short-circuits if an active task already owns
// the content, and otherwise registers and enqueues a new task.
func (s *Service) Submit(ctx context.Context, filePath string, meta entity.RunMetadata) (*SubmitResult, error) {
	hash, err := HashFile(filePath)
	if err != nil {
		return nil, err
	}

	existing, err := s.index.Lookup(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	if existing != nil {
		s.log.Info("intake.duplicate",
			"task_id", existing.TaskID,
			"status", existing.Status,
			"content_hash", hash,
			"file", filePath,
		)
		return &SubmitResult{TaskID: existing.TaskID, Status: existing.Status, Duplicate: true}, nil
	}

	taskID := uuid.New()
	rec := repository.TaskRecord{
		TaskID:      taskID,
		ContentHash: hash,
		FilePath:    filePath,
		Status:      constants.TaskQueued,
		Metadata:    meta,
	}
	if err := s.index.Register(ctx, rec); err != nil {
		// A concurrent submission won the hash between Lookup and
		// Register; the unique index is the authority, not the lookup.
		if errors.Is(err, common.ErrDuplicateTask) {
			winner, lerr := s.index.Lookup(ctx, hash)
			if lerr == nil && winner != nil {
				s.log.Info("intake.duplicate",
					"task_id", winner.TaskID,
					"status", winner.Status,
					"content_hash", hash,
					"file", filePath,
				)
				return &SubmitResult{TaskID: winner.TaskID, Status: winner.Status, Duplicate: true}, nil
			}
		}
		return nil, fmt.Errorf("register task: %w", err)
	}

	job := async.Job{
		TaskID:      taskID,
		FilePath:    filePath,
		ContentHash: hash,
		Metadata:    meta,
		SubmittedAt: time.Now(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue task: %w", err)
	}

	s.log.Info("intake.accepted", "task_id", taskID, "content_hash", hash, "file", filePath)
	return &SubmitResult{TaskID: taskID, Status: constants.TaskQueued}, nil
}
