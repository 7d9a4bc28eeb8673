package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/licitalab/editalscan/constants"
)

// StageRecord is one append-only entry of the per-run stage log.
type StageRecord struct {
	Stage    constants.Stage       `json:"stage"`
	Status   constants.StageStatus `json:"status"`
	Duration time.Duration         `json:"duration"`
	Error    string                `json:"error,omitempty"`
}

// ProcessingContext carries all intermediate data for one pipeline run.
// It is owned by exactly one run and mutated only by the stage currently
// executing; it is never shared across concurrent runs.
type ProcessingContext struct {
	TaskID    uuid.UUID
	AttemptID string
	FilePath  string

	RawText string
	OCRText string

	Pages        int
	Sections     map[string]string
	TableRegions []TableRegion
	Tables       []Table
	ProductTables []Table

	Prompts  PromptSet
	Analysis map[string]any

	Structured    *EditalInfo
	Risks         []Risk
	RiskSummary   RiskSummary
	Opportunities []Opportunity

	QualityScore   float64
	QualityDetails map[string]float64

	ProcessingTimes map[string]time.Duration
	StageLog        []StageRecord
	Errors          []string
	Warnings        []string

	Result *FinalResult
}

// PromptSet holds the prompt payloads assembled during AI preprocessing.
type PromptSet struct {
	Extraction    string
	Understanding string
	Validation    string
	Chunks        []string
}

// NewProcessingContext creates the context for one attempt.
func NewProcessingContext(taskID uuid.UUID, attemptID, filePath string) *ProcessingContext {
	return &ProcessingContext{
		TaskID:          taskID,
		AttemptID:       attemptID,
		FilePath:        filePath,
		Analysis:        map[string]any{},
		Sections:        map[string]string{},
		ProcessingTimes: map[string]time.Duration{},
	}
}

func (c *ProcessingContext) AddError(stage constants.Stage, err error) {
	c.Errors = append(c.Errors, fmt.Sprintf("%s: %v", stage, err))
}

func (c *ProcessingContext) AddWarning(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// RecordStage appends to the stage log and stores the elapsed time.
func (c *ProcessingContext) RecordStage(stage constants.Stage, status constants.StageStatus, d time.Duration, err error) {
	rec := StageRecord{Stage: stage, Status: status, Duration: d}
	if err != nil {
		rec.Error = err.Error()
	}
	c.StageLog = append(c.StageLog, rec)
	c.ProcessingTimes[string(stage)] = d
}

// TotalProcessingTime sums all recorded stage durations.
func (c *ProcessingContext) TotalProcessingTime() time.Duration {
	var total time.Duration
	for _, d := range c.ProcessingTimes {
		total += d
	}
	return total
}

// TotalItems counts line items across product tables.
func (c *ProcessingContext) TotalItems() int {
	n := 0
	for i := range c.ProductTables {
		n += len(c.ProductTables[i].Products)
	}
	return n
}
