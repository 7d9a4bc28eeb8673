package extract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitalab/editalscan/internal/common"
)

type stubRunner struct {
	out []byte
	err error
}

func (r stubRunner) Run(context.Context, string, ...string) ([]byte, []byte, error) {
	return r.out, nil, r.err
}

// realExitError produces an *exec.ExitError the way a tool that ran
// and rejected its input does.
func realExitError(t *testing.T) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit 3").Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	return err
}

func tempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edital.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o644))
	return path
}

func TestInspectParsesPdfinfoOutput(t *testing.T) {
	out := []byte("Title:          Edital 001/2025\nPages:          42\nEncrypted:      no\n")
	p := NewPopplerExtractor("", "", stubRunner{out: out}, nil)

	info, err := p.Inspect(context.Background(), tempPDF(t))
	require.NoError(t, err)
	assert.Equal(t, 42, info.Pages)
	assert.False(t, info.Encrypted)
	assert.Equal(t, "Edital 001/2025", info.Title)
}

func TestInspectNoPagesIsUnreadable(t *testing.T) {
	p := NewPopplerExtractor("", "", stubRunner{out: []byte("Title: x\n")}, nil)

	_, err := p.Inspect(context.Background(), tempPDF(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnreadableDocument)
	assert.False(t, common.Retryable(err))
}

func TestExtractTextToolFailureIsRetryable(t *testing.T) {
	// The tool never ran: missing binary, killed, context expired.
	p := NewPopplerExtractor("", "", stubRunner{err: errors.New("executable file not found in $PATH")}, nil)

	_, err := p.ExtractText(context.Background(), "/in/edital.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDocumentUnavailable)
	assert.True(t, common.Retryable(err))
}

func TestExtractTextRejectedDocumentIsNotRetryable(t *testing.T) {
	// The tool ran and exited nonzero: the document itself is the problem.
	p := NewPopplerExtractor("", "", stubRunner{err: realExitError(t)}, nil)

	_, err := p.ExtractText(context.Background(), "/in/edital.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnreadableDocument)
	assert.False(t, common.Retryable(err))
}

func TestInspectToolFailureIsRetryable(t *testing.T) {
	p := NewPopplerExtractor("", "", stubRunner{err: errors.New("signal: killed")}, nil)

	_, err := p.Inspect(context.Background(), tempPDF(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDocumentUnavailable)
	assert.True(t, common.Retryable(err))
}
