package ingest

import (
	"context"

	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/intake"
)

// Submitter is the behavior the ingest service depends on.
type Submitter interface {
	Submit(ctx context.Context, filePath string, meta entity.RunMetadata) (*intake.SubmitResult, error)
}

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path      string
	TaskID    string
	Duplicate bool
	Err       string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Submitted uint32
	Duplicate uint32
	Failed    uint32
}
