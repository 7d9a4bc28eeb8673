package extract

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes an external binary. Capability adapters depend on the
// interface so tests can stub pdftotext/pdfinfo/tesseract output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() Runner { return execRunner{} }

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if err != nil {
		slog.Error("exec.failed",
			"bin", name,
			"args", args,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", stderrTail(stderr.Bytes()),
		)
	} else {
		slog.Debug("exec.ok",
			"bin", name,
			"args", args,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"stdout_bytes", stdout.Len(),
		)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// stderrTail keeps log records bounded when a tool dumps its whole
// processing log to stderr.
func stderrTail(b []byte) string {
	const max = 4 << 10
	if len(b) <= max {
		return string(b)
	}
	return "..." + string(b[len(b)-max:])
}
