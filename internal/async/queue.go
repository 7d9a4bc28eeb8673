package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/licitalab/editalscan/internal/entity"
)

// Job is one queued processing attempt. Attempt is the number of
// attempts already executed for the task; the queue is the only writer.
type Job struct {
	TaskID      uuid.UUID
	FilePath    string
	ContentHash string
	Metadata    entity.RunMetadata
	Attempt     int
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
