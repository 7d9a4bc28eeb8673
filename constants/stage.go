package constants

// Stage identifies one step of the edital processing pipeline.
type Stage string

const (
	StageValidation                Stage = "validation"
	StageTextExtraction            Stage = "text_extraction"
	StageOCRProcessing             Stage = "ocr_processing"
	StageTableDetection            Stage = "table_detection"
	StageTableExtraction           Stage = "table_extraction"
	StageAIPreprocessing           Stage = "ai_preprocessing"
	StageAIAnalysis                Stage = "ai_analysis"
	StageStructureExtraction       Stage = "structure_extraction"
	StageRiskAnalysis              Stage = "risk_analysis"
	StageOpportunityIdentification Stage = "opportunity_identification"
	StageQualityValidation         Stage = "quality_validation"
	StageResultCompilation         Stage = "result_compilation"
	StageStorage                   Stage = "storage"
	StageNotification              Stage = "notification"
)

// StageSequence is the fixed execution order. The orchestrator never
// reorders or skips entries; conditional stages (OCR) decide internally
// whether they have work to do.
var StageSequence = []Stage{
	StageValidation,
	StageTextExtraction,
	StageOCRProcessing,
	StageTableDetection,
	StageTableExtraction,
	StageAIPreprocessing,
	StageAIAnalysis,
	StageStructureExtraction,
	StageRiskAnalysis,
	StageOpportunityIdentification,
	StageQualityValidation,
	StageResultCompilation,
	StageStorage,
	StageNotification,
}

// StageProgress is the percent reported when a stage begins. 100 is
// emitted once after the final stage completes.
var StageProgress = map[Stage]int{
	StageValidation:                0,
	StageTextExtraction:            7,
	StageOCRProcessing:             14,
	StageTableDetection:            21,
	StageTableExtraction:           29,
	StageAIPreprocessing:           36,
	StageAIAnalysis:                43,
	StageStructureExtraction:       50,
	StageRiskAnalysis:              57,
	StageOpportunityIdentification: 64,
	StageQualityValidation:         71,
	StageResultCompilation:         79,
	StageStorage:                   86,
	StageNotification:              93,
}

// FatalStages is the single source of truth for abort-vs-continue. A
// failure in any other stage is recorded as a warning and the pipeline
// proceeds with partial data. Storage failures abort because a run whose
// result could not be durably written must not be reported as completed.
var FatalStages = map[Stage]bool{
	StageValidation:     true,
	StageTextExtraction: true,
	StageAIAnalysis:     true,
	StageStorage:        true,
}

// IsFatal reports whether a failure in the stage aborts the run.
func IsFatal(s Stage) bool { return FatalStages[s] }

// StageStatus is the state recorded per stage in the context log.
type StageStatus string

const (
	StageStarted   StageStatus = "started"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)
