// Package pipeline runs the fixed multi-stage analysis of one edital
// document: extraction, OCR fallback, tables, AI analysis, risk and
// opportunity scoring, quality aggregation, storage and notification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/ai"
	"github.com/licitalab/editalscan/internal/async"
	"github.com/licitalab/editalscan/internal/cache"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/extract"
	"github.com/licitalab/editalscan/internal/notify"
	"github.com/licitalab/editalscan/internal/quality"
	"github.com/licitalab/editalscan/internal/repository"
	"github.com/licitalab/editalscan/internal/scoring"
)

// Orchestrator drives one attempt through the stage sequence. All
// capability dependencies are injected; optional ones (tables, OCR,
// callbacks) may be nil and their stages degrade to warnings.
type Orchestrator struct {
	docs      extract.DocumentExtractor
	ocr       extract.OCREngine
	tables    extract.TableExtractor
	analyzer  ai.Analyzer
	risk      *scoring.RiskAnalyzer
	opps      *scoring.OpportunityIdentifier
	quality   *quality.Aggregator
	results   repository.ResultStore
	callbacks notify.CallbackSender
	progress  notify.ProgressSink
	cache     cache.Cache

	cfg  common.PipelineConfig
	caps common.CapabilityConfig
	log  *slog.Logger
	now  func() time.Time
}

// Deps bundles the orchestrator's constructor arguments.
type Deps struct {
	Docs      extract.DocumentExtractor
	OCR       extract.OCREngine
	Tables    extract.TableExtractor
	Analyzer  ai.Analyzer
	Risk      *scoring.RiskAnalyzer
	Opps      *scoring.OpportunityIdentifier
	Quality   *quality.Aggregator
	Results   repository.ResultStore
	Callbacks notify.CallbackSender
	Progress  notify.ProgressSink
	Cache     cache.Cache
}

func NewOrchestrator(deps Deps, cfg common.PipelineConfig, caps common.CapabilityConfig, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	o := &Orchestrator{
		docs:      deps.Docs,
		ocr:       deps.OCR,
		tables:    deps.Tables,
		analyzer:  deps.Analyzer,
		risk:      deps.Risk,
		opps:      deps.Opps,
		quality:   deps.Quality,
		results:   deps.Results,
		callbacks: deps.Callbacks,
		progress:  deps.Progress,
		cache:     deps.Cache,
		cfg:       cfg,
		caps:      caps,
		log:       log,
		now:       time.Now,
	}
	if o.progress == nil {
		o.progress = notify.NopSink{}
	}
	if o.cache == nil {
		o.cache = cache.Nop{}
	}
	return o
}

// Run executes one attempt. A fatal stage failure aborts with a
// StageError; non-fatal failures are recorded on the context and the
// run proceeds with partial data.
func (o *Orchestrator) Run(ctx context.Context, job async.Job, attemptID string) (*entity.FinalResult, error) {
	pc := entity.NewProcessingContext(job.TaskID, attemptID, job.FilePath)

	o.log.Info("pipeline.start",
		"task_id", job.TaskID,
		"attempt_id", attemptID,
		"file", job.FilePath,
	)

	for _, stage := range constants.StageSequence {
		if err := ctx.Err(); err != nil {
			runsTotal.WithLabelValues("cancelled").Inc()
			return nil, fmt.Errorf("%w: %v", common.ErrCancelled, err)
		}

		o.progress.Report(notify.ProgressUpdate{
			TaskID:  job.TaskID,
			Percent: constants.StageProgress[stage],
			Message: string(stage),
		})

		start := time.Now()
		err := o.runStage(ctx, stage, pc, job)
		elapsed := time.Since(start)
		stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())

		if err != nil {
			if ctx.Err() != nil {
				pc.RecordStage(stage, constants.StageFailed, elapsed, err)
				runsTotal.WithLabelValues("cancelled").Inc()
				return nil, fmt.Errorf("%w: stage %s: %v", common.ErrCancelled, stage, ctx.Err())
			}

			stageFailures.WithLabelValues(string(stage)).Inc()
			pc.RecordStage(stage, constants.StageFailed, elapsed, err)
			pc.AddError(stage, err)

			if constants.IsFatal(stage) {
				o.log.Error("pipeline.stage_fatal", "task_id", job.TaskID, "stage", stage, "error", err)
				runsTotal.WithLabelValues("failed").Inc()
				return nil, &StageError{Stage: stage, Err: err}
			}

			o.log.Warn("pipeline.stage_failed", "task_id", job.TaskID, "stage", stage, "error", err)
			continue
		}

		pc.RecordStage(stage, constants.StageCompleted, elapsed, nil)
		o.log.Debug("pipeline.stage_done", "task_id", job.TaskID, "stage", stage, "elapsed", elapsed)
	}

	o.progress.Report(notify.ProgressUpdate{TaskID: job.TaskID, Percent: 100, Message: "concluído"})
	runsTotal.WithLabelValues("completed").Inc()

	o.log.Info("pipeline.done",
		"task_id", job.TaskID,
		"quality_score", pc.QualityScore,
		"risks", len(pc.Risks),
		"opportunities", len(pc.Opportunities),
		"elapsed", pc.TotalProcessingTime(),
	)
	return pc.Result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage constants.Stage, pc *entity.ProcessingContext, job async.Job) error {
	switch stage {
	case constants.StageValidation:
		return o.validate(ctx, pc)
	case constants.StageTextExtraction:
		return o.extractText(ctx, pc, job.ContentHash)
	case constants.StageOCRProcessing:
		return o.runOCR(ctx, pc, job.ContentHash)
	case constants.StageTableDetection:
		return o.detectTables(ctx, pc)
	case constants.StageTableExtraction:
		return o.extractTables(ctx, pc)
	case constants.StageAIPreprocessing:
		return o.preprocessAI(ctx, pc, job.Metadata)
	case constants.StageAIAnalysis:
		return o.analyzeAI(ctx, pc, job.ContentHash)
	case constants.StageStructureExtraction:
		return o.extractStructure(ctx, pc, job.Metadata)
	case constants.StageRiskAnalysis:
		return o.analyzeRisks(ctx, pc)
	case constants.StageOpportunityIdentification:
		return o.identifyOpportunities(ctx, pc)
	case constants.StageQualityValidation:
		return o.validateQuality(ctx, pc)
	case constants.StageResultCompilation:
		return o.compileResult(ctx, pc, job.Metadata)
	case constants.StageStorage:
		return o.storeResult(ctx, pc)
	case constants.StageNotification:
		return o.sendNotifications(ctx, pc, job.Metadata)
	}
	return fmt.Errorf("unknown stage %q", stage)
}

// CancelledErr reports whether the error means the run was cancelled
// rather than failed.
func CancelledErr(err error) bool {
	return errors.Is(err, common.ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
