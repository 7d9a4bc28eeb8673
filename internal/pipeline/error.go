package pipeline

import (
	"fmt"

	"github.com/licitalab/editalscan/constants"
)

// StageError wraps a stage failure so callers can tell which stage
// aborted the run while errors.Is still sees the underlying sentinel.
type StageError struct {
	Stage constants.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
