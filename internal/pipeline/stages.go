package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/licitalab/editalscan/internal/ai"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/extract"
	"github.com/licitalab/editalscan/internal/notify"
)

const (
	cacheOpText = "text"
	cacheOpOCR  = "ocr"
	cacheOpAI   = "ai"
)

type cachedExtraction struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
}

type cachedOCR struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (o *Orchestrator) validate(ctx context.Context, pc *entity.ProcessingContext) error {
	info, err := os.Stat(pc.FilePath)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", common.ErrValidation, pc.FilePath)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: file is empty", common.ErrValidation)
	}
	if o.cfg.MaxFileSize > 0 && info.Size() > o.cfg.MaxFileSize {
		return fmt.Errorf("%w: file size %d exceeds limit %d", common.ErrValidation, info.Size(), o.cfg.MaxFileSize)
	}
	if ext := strings.ToLower(filepath.Ext(pc.FilePath)); ext != ".pdf" {
		return fmt.Errorf("%w: unsupported file type %q", common.ErrValidation, ext)
	}

	doc, err := o.docs.Inspect(ctx, pc.FilePath)
	if err != nil {
		// Tool-level failures keep their retryable sentinel; only
		// document problems become validation errors.
		if common.Retryable(err) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if doc.Encrypted {
		return fmt.Errorf("%w: document is encrypted", common.ErrValidation)
	}
	pc.Pages = doc.Pages
	return nil
}

func (o *Orchestrator) extractText(ctx context.Context, pc *entity.ProcessingContext, hash string) error {
	if hash != "" {
		if data, ok, err := o.cache.Get(ctx, cacheOpText, hash); err == nil && ok {
			var cached cachedExtraction
			if json.Unmarshal(data, &cached) == nil {
				pc.RawText = cached.Text
				if cached.Pages > 0 {
					pc.Pages = cached.Pages
				}
				o.log.Debug("pipeline.text_cache_hit", "task_id", pc.TaskID)
				return nil
			}
		}
	}

	res, err := o.docs.ExtractText(ctx, pc.FilePath)
	if err != nil {
		return err
	}
	pc.RawText = res.Text
	if res.Pages > 0 {
		pc.Pages = res.Pages
	}
	for _, w := range res.Warnings {
		pc.AddWarning("%s", w)
	}

	if hash != "" {
		if data, err := json.Marshal(cachedExtraction{Text: res.Text, Pages: res.Pages}); err == nil {
			if cerr := o.cache.Set(ctx, cacheOpText, hash, data); cerr != nil {
				o.log.Warn("pipeline.text_cache_set_failed", "task_id", pc.TaskID, "error", cerr)
			}
		}
	}
	return nil
}

func (o *Orchestrator) runOCR(ctx context.Context, pc *entity.ProcessingContext, hash string) error {
	if !extract.NeedsOCR(pc.RawText) {
		o.log.Debug("pipeline.ocr_skipped", "task_id", pc.TaskID, "text_len", len(pc.RawText))
		return nil
	}
	if o.ocr == nil {
		pc.AddWarning("ocr needed but no engine configured")
		return nil
	}

	if hash != "" {
		if data, ok, err := o.cache.Get(ctx, cacheOpOCR, hash); err == nil && ok {
			var cached cachedOCR
			if json.Unmarshal(data, &cached) == nil {
				pc.OCRText = cached.Text
				pc.RawText = extract.MergeTexts(pc.RawText, cached.Text)
				pc.Analysis["ocr_confidence"] = cached.Confidence
				o.log.Debug("pipeline.ocr_cache_hit", "task_id", pc.TaskID)
				return nil
			}
		}
	}

	res, err := o.ocr.Recognize(ctx, pc.FilePath, o.cfg.OCRLanguages)
	if err != nil {
		return err
	}
	pc.OCRText = res.Text
	pc.RawText = extract.MergeTexts(pc.RawText, res.Text)
	pc.Analysis["ocr_confidence"] = res.Confidence

	if hash != "" {
		if data, err := json.Marshal(cachedOCR{Text: res.Text, Confidence: res.Confidence}); err == nil {
			if cerr := o.cache.Set(ctx, cacheOpOCR, hash, data); cerr != nil {
				o.log.Warn("pipeline.ocr_cache_set_failed", "task_id", pc.TaskID, "error", cerr)
			}
		}
	}
	return nil
}

func (o *Orchestrator) detectTables(ctx context.Context, pc *entity.ProcessingContext) error {
	if o.tables == nil {
		pc.AddWarning("table capability not configured, skipping detection")
		return nil
	}
	regions, err := o.tables.DetectTables(ctx, pc.FilePath)
	if err != nil {
		return err
	}
	pc.TableRegions = regions
	o.log.Debug("pipeline.tables_detected", "task_id", pc.TaskID, "regions", len(regions))
	return nil
}

func (o *Orchestrator) extractTables(ctx context.Context, pc *entity.ProcessingContext) error {
	if o.tables == nil || len(pc.TableRegions) == 0 {
		return nil
	}

	for _, region := range pc.TableRegions {
		table, err := o.tables.ExtractTable(ctx, pc.FilePath, region)
		if err != nil {
			pc.AddWarning("table extraction failed on page %d: %v", region.Page, err)
			continue
		}

		table.Type = extract.ClassifyTable(&table)
		table.ProductScore = extract.ProductTableScore(&table)
		if table.Type == entity.TableProducts {
			table.Products = extract.StructureProducts(&table)
		}

		pc.Tables = append(pc.Tables, table)
		if table.Type == entity.TableProducts {
			pc.ProductTables = append(pc.ProductTables, table)
		}
	}
	return nil
}

func (o *Orchestrator) preprocessAI(_ context.Context, pc *entity.ProcessingContext, meta entity.RunMetadata) error {
	pc.Sections = extract.IdentifySections(pc.RawText)

	if o.cfg.ChunkThreshold > 0 && len(pc.RawText) > o.cfg.ChunkThreshold {
		pc.Prompts.Chunks = ai.ChunkText(pc.RawText, o.cfg.ChunkSize)
		o.log.Debug("pipeline.text_chunked", "task_id", pc.TaskID, "chunks", len(pc.Prompts.Chunks))
	}

	pc.Prompts.Extraction = ai.BuildExtractionPrompt(pc.RawText, len(pc.TableRegions), meta)
	pc.Prompts.Understanding = ai.BuildUnderstandingPrompt(pc.RawText)
	pc.Prompts.Validation = ai.BuildValidationPrompt(len(pc.TableRegions), sectionNames(pc.Sections))
	return nil
}

func (o *Orchestrator) analyzeAI(ctx context.Context, pc *entity.ProcessingContext, hash string) error {
	if o.analyzer == nil {
		return fmt.Errorf("%w: no analyzer configured", common.ErrAIUnavailable)
	}

	if hash != "" {
		if data, ok, err := o.cache.Get(ctx, cacheOpAI, hash); err == nil && ok {
			var islands []json.RawMessage
			if json.Unmarshal(data, &islands) == nil && len(islands) > 0 {
				pc.Analysis["extraction_islands"] = islands
				o.log.Debug("pipeline.ai_cache_hit", "task_id", pc.TaskID)
				return nil
			}
		}
	}

	opts := ai.Options{Temperature: o.caps.AITemperature, MaxTokens: o.caps.AIMaxTokens}

	prompts := []string{pc.Prompts.Extraction}
	if len(pc.Prompts.Chunks) > 0 {
		prompts = prompts[:0]
		for _, chunk := range pc.Prompts.Chunks {
			prompts = append(prompts, ai.BuildExtractionPrompt(chunk, len(pc.TableRegions), entity.RunMetadata{}))
		}
	}

	// Every response must carry a schema-valid JSON island. A model that
	// answers in prose produced no analysis, and that fails the stage.
	schema := ai.BuildEditalJSONSchema()
	var islands []json.RawMessage
	var parseErr error
	for _, prompt := range prompts {
		resp, err := o.analyzer.Analyze(ctx, prompt, opts)
		if err != nil {
			return err
		}
		island, err := ai.ParseStructured(resp, schema)
		if err != nil {
			if parseErr == nil {
				parseErr = err
			}
			continue
		}
		islands = append(islands, island)
	}
	if len(islands) == 0 {
		if parseErr != nil {
			return parseErr
		}
		return fmt.Errorf("%w: no extraction responses", common.ErrAIResponseMalformed)
	}
	pc.Analysis["extraction_islands"] = islands

	// Context understanding is best-effort enrichment.
	if understanding, err := o.analyzer.Analyze(ctx, pc.Prompts.Understanding, opts); err == nil {
		pc.Analysis["context_understanding"] = understanding
	} else {
		pc.AddWarning("context understanding failed: %v", err)
	}

	if hash != "" {
		if data, err := json.Marshal(islands); err == nil {
			if cerr := o.cache.Set(ctx, cacheOpAI, hash, data); cerr != nil {
				o.log.Warn("pipeline.ai_cache_set_failed", "task_id", pc.TaskID, "error", cerr)
			}
		}
	}
	return nil
}

func (o *Orchestrator) extractStructure(_ context.Context, pc *entity.ProcessingContext, meta entity.RunMetadata) error {
	// The AI analysis stage already validated the islands; MapFields
	// fills anything the model left out from metadata and regex matches
	// over the raw text.
	if islands, _ := pc.Analysis["extraction_islands"].([]json.RawMessage); len(islands) > 0 {
		pc.Structured = ai.MapFields(islands[0], meta, pc.RawText)
		return nil
	}
	pc.Structured = ai.MapFields(json.RawMessage("{}"), meta, pc.RawText)
	return nil
}

func (o *Orchestrator) analyzeRisks(_ context.Context, pc *entity.ProcessingContext) error {
	analysis := o.risk.Analyze(pc.RawText, pc.Structured, pc.Tables)
	if o.cfg.TopRisks > 0 && len(analysis.Risks) > o.cfg.TopRisks {
		analysis.Risks = analysis.Risks[:o.cfg.TopRisks]
	}
	pc.Risks = analysis.Risks
	pc.RiskSummary = analysis.Summary
	return nil
}

func (o *Orchestrator) identifyOpportunities(_ context.Context, pc *entity.ProcessingContext) error {
	opps := o.opps.Identify(pc.Structured, pc.ProductTables, entity.RiskAnalysis{Summary: pc.RiskSummary, Risks: pc.Risks})
	if o.cfg.TopOpportunities > 0 && len(opps) > o.cfg.TopOpportunities {
		opps = opps[:o.cfg.TopOpportunities]
	}
	pc.Opportunities = opps
	return nil
}

func (o *Orchestrator) validateQuality(_ context.Context, pc *entity.ProcessingContext) error {
	o.quality.Score(pc)
	return nil
}

func (o *Orchestrator) compileResult(_ context.Context, pc *entity.ProcessingContext, meta entity.RunMetadata) error {
	pc.Result = o.quality.Compile(pc, meta, o.now())
	return nil
}

func (o *Orchestrator) storeResult(ctx context.Context, pc *entity.ProcessingContext) error {
	if o.results == nil {
		pc.AddWarning("no result store configured")
		return nil
	}
	return o.results.Save(ctx, pc.Result)
}

func (o *Orchestrator) sendNotifications(ctx context.Context, pc *entity.ProcessingContext, meta entity.RunMetadata) error {
	if meta.CallbackURL == "" || o.callbacks == nil {
		return nil
	}
	payload := notify.CompletionPayload(pc.Result, o.now())
	return o.callbacks.Send(ctx, meta.CallbackURL, payload)
}

func sectionNames(sections map[string]string) []string {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	return names
}
