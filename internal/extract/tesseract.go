package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/licitalab/editalscan/internal/common"
)

// TesseractOCR implements OCREngine by shelling out to tesseract via a
// pdftoppm rasterization step handled by tesseract's own PDF input
// support (tesseract >= 4 reads PDFs directly when built with it; the
// deployment image guarantees this).
type TesseractOCR struct {
	TesseractBin string
	TessdataDir  string
	Runner       Runner
	Log          *slog.Logger
}

func NewTesseractOCR(bin, tessdataDir string, runner Runner, log *slog.Logger) *TesseractOCR {
	if log == nil {
		log = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	if bin == "" {
		bin = "tesseract"
	}
	return &TesseractOCR{TesseractBin: bin, TessdataDir: tessdataDir, Runner: runner, Log: log}
}

func (t *TesseractOCR) Recognize(ctx context.Context, path string, languages []string) (OCRResult, error) {
	args := []string{path, "stdout"}
	if len(languages) > 0 {
		args = append(args, "-l", strings.Join(languages, "+"))
	}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}

	out, _, err := t.Runner.Run(ctx, t.TesseractBin, args...)
	if err != nil {
		return OCRResult{}, fmt.Errorf("%w: tesseract: %v", common.ErrOCRUnavailable, err)
	}

	text := string(out)
	res := OCRResult{
		Text:       text,
		Confidence: estimateConfidence(text),
	}
	t.Log.Info("ocr.ok", "path", path, "bytes", len(text), "confidence", res.Confidence)
	return res, nil
}

// estimateConfidence is a cheap proxy when tesseract is run without TSV
// output: ratio of word-like tokens to all tokens.
func estimateConfidence(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordish := 0
	for _, f := range fields {
		letters := 0
		for _, r := range f {
			if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 || ('0' <= r && r <= '9') {
				letters++
			}
		}
		if letters*2 >= len([]rune(f)) {
			wordish++
		}
	}
	return float64(wordish) / float64(len(fields))
}
