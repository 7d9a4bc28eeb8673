package notify

import (
	"log/slog"

	"github.com/google/uuid"
)

// ProgressUpdate is one progress emission for a running task.
type ProgressUpdate struct {
	TaskID  uuid.UUID
	Percent int
	Message string
}

// ProgressSink receives progress emissions. Report must never block
// the pipeline: implementations drop updates rather than stall.
type ProgressSink interface {
	Report(update ProgressUpdate)
}

// NopSink discards all updates.
type NopSink struct{}

func (NopSink) Report(ProgressUpdate) {}

// LogSink writes each update to the structured log.
type LogSink struct {
	Log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{Log: log}
}

func (s *LogSink) Report(u ProgressUpdate) {
	s.Log.Info("progress",
		"task_id", u.TaskID,
		"percent", u.Percent,
		"message", u.Message,
	)
}

// ChannelSink forwards updates to a channel, dropping when the reader
// falls behind.
type ChannelSink struct {
	C chan ProgressUpdate
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSink{C: make(chan ProgressUpdate, buffer)}
}

func (s *ChannelSink) Report(u ProgressUpdate) {
	select {
	case s.C <- u:
	default:
	}
}
