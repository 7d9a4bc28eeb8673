package entity

import (
	"time"

	"github.com/google/uuid"
)

// ResultSummary holds the final counters compiled at the end of a run.
type ResultSummary struct {
	TotalPages         int     `json:"total_pages"`
	TablesFound        int     `json:"tables_found"`
	ProductTables      int     `json:"product_tables"`
	TotalItems         int     `json:"total_items"`
	RisksIdentified    int     `json:"risks_identified"`
	OpportunitiesFound int     `json:"opportunities_found"`
	QualityScore       float64 `json:"quality_score"`
	ProcessingSeconds  float64 `json:"processing_time"`
}

// FinalResult is the terminal, immutable output of a successful run.
// It is never mutated after hand-off to the result store.
type FinalResult struct {
	TaskID          uuid.UUID          `json:"task_id"`
	AttemptID       string             `json:"attempt_id"`
	Filename        string             `json:"filename"`
	ProcessedAt     time.Time          `json:"processed_at"`
	Metadata        RunMetadata        `json:"metadata"`
	Structured      *EditalInfo        `json:"extraction_data,omitempty"`
	ProductTables   []Table            `json:"products_table"`
	RiskAnalysis    RiskAnalysis       `json:"risk_analysis"`
	Opportunities   []Opportunity      `json:"opportunities"`
	QualityScore    float64            `json:"quality_score"`
	QualityDetails  map[string]float64 `json:"quality_details,omitempty"`
	Summary         ResultSummary      `json:"summary"`
	ProcessingTimes map[string]float64 `json:"processing_times"`
	Errors          []string           `json:"errors"`
	Warnings        []string           `json:"warnings"`
}
