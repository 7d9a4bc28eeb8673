package constants

// TaskStatus is the canonical lifecycle status for a processing task.
type TaskStatus string

// Stable values (stored as-is in the dedup index and result store).
const (
	TaskQueued     TaskStatus = "queued"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Active reports whether a task in this status still owns its content
// hash for deduplication purposes. Completed runs keep ownership so a
// resubmission short-circuits to the stored result.
func (s TaskStatus) Active() bool {
	switch s {
	case TaskQueued, TaskProcessing, TaskCompleted:
		return true
	}
	return false
}
