package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/licitalab/editalscan/internal/common"
)

// PopplerExtractor implements DocumentExtractor by shelling out to the
// poppler tools (pdftotext/pdfinfo).
type PopplerExtractor struct {
	PdftotextBin string
	PdfinfoBin   string
	Runner       Runner
	Log          *slog.Logger
}

func NewPopplerExtractor(pdftotextBin, pdfinfoBin string, runner Runner, log *slog.Logger) *PopplerExtractor {
	if log == nil {
		log = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	if pdftotextBin == "" {
		pdftotextBin = "pdftotext"
	}
	if pdfinfoBin == "" {
		pdfinfoBin = "pdfinfo"
	}
	return &PopplerExtractor{PdftotextBin: pdftotextBin, PdfinfoBin: pdfinfoBin, Runner: runner, Log: log}
}

// Inspect parses pdfinfo output for page count and encryption status.
func (p *PopplerExtractor) Inspect(ctx context.Context, path string) (DocumentInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}
	info := DocumentInfo{SizeBytes: st.Size()}

	out, _, err := p.Runner.Run(ctx, p.PdfinfoBin, path)
	if err != nil {
		return info, classifyToolErr("pdfinfo", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "Pages":
			if n, err := strconv.Atoi(val); err == nil {
				info.Pages = n
			}
		case "Encrypted":
			info.Encrypted = strings.HasPrefix(val, "yes")
		case "Title":
			info.Title = val
		}
	}
	if info.Pages == 0 {
		return info, fmt.Errorf("%w: no pages reported", common.ErrUnreadableDocument)
	}
	return info, nil
}

// ExtractText runs pdftotext with layout preservation and returns the
// whole document as one string.
func (p *PopplerExtractor) ExtractText(ctx context.Context, path string) (TextExtractionResult, error) {
	start := time.Now()

	// "-" writes to stdout
	out, stderr, err := p.Runner.Run(ctx, p.PdftotextBin, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return TextExtractionResult{}, classifyToolErr("pdftotext", err)
	}

	res := TextExtractionResult{
		Text:     string(out),
		Method:   "pdf-text",
		Duration: time.Since(start),
	}
	if len(stderr) > 0 {
		res.Warnings = append(res.Warnings, strings.TrimSpace(string(stderr)))
	}

	p.Log.Info("extract.text.ok",
		"path", path,
		"bytes", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// classifyToolErr separates a tool that ran and rejected the document
// (corrupt or encrypted input) from one that could not run at all
// (missing binary, killed, timed out). Only the latter is retryable.
func classifyToolErr(tool string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s: %v", common.ErrUnreadableDocument, tool, err)
	}
	return fmt.Errorf("%w: %s: %v", common.ErrDocumentUnavailable, tool, err)
}
