package extract

import (
	"context"
	"time"

	"github.com/licitalab/editalscan/internal/entity"
)

// DocumentInfo is the structural metadata used by the validation stage.
type DocumentInfo struct {
	Pages     int
	SizeBytes int64
	Encrypted bool
	Title     string
}

// TextExtractionResult is the output of the text extraction capability.
type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdf-ocr"
	Duration time.Duration
	Warnings []string
}

// DocumentExtractor is the external document capability: given a file,
// return structural metadata and raw text with layout preserved.
type DocumentExtractor interface {
	Inspect(ctx context.Context, path string) (DocumentInfo, error)
	ExtractText(ctx context.Context, path string) (TextExtractionResult, error)
}

// TableExtractor is the external table capability: locate candidate
// regions, then pull 2-D cell data per region.
type TableExtractor interface {
	DetectTables(ctx context.Context, path string) ([]entity.TableRegion, error)
	ExtractTable(ctx context.Context, path string, region entity.TableRegion) (entity.Table, error)
}

// OCRResult is the output of the OCR capability.
type OCRResult struct {
	Text       string
	Confidence float64
}

// OCREngine is the external OCR capability for scanned/image documents.
type OCREngine interface {
	Recognize(ctx context.Context, path string, languages []string) (OCRResult, error)
}
