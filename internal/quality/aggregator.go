package quality

import (
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/licitalab/editalscan/internal/entity"
)

// Aggregator computes the run quality score from the accumulated
// processing context and compiles the final result.
type Aggregator struct {
	weights Weights
	log     *slog.Logger
}

func NewAggregator(weights Weights, log *slog.Logger) *Aggregator {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{weights: weights, log: log}
}

// Score fills QualityScore and QualityDetails on the context. The
// final score is on a 0-100 scale, rounded to two decimals; the
// per-dimension details stay on the raw 0-1 scale.
func (a *Aggregator) Score(c *entity.ProcessingContext) {
	details := map[string]float64{
		"text_extraction":  scoreTextExtraction(c),
		"table_extraction": scoreTableExtraction(c),
		"ai_extraction":    scoreAIExtraction(c),
		"completeness":     scoreCompleteness(c),
		"consistency":      scoreConsistency(c),
	}

	total := details["text_extraction"]*a.weights.TextExtraction +
		details["table_extraction"]*a.weights.TableExtraction +
		details["ai_extraction"]*a.weights.AIExtraction +
		details["completeness"]*a.weights.Completeness +
		details["consistency"]*a.weights.Consistency
	c.QualityScore = math.Round(total*100*100) / 100
	c.QualityDetails = details

	a.log.Info("quality.scored",
		"task_id", c.TaskID,
		"quality_score", c.QualityScore,
	)
}

// Compile freezes the context into the final immutable result.
func (a *Aggregator) Compile(c *entity.ProcessingContext, meta entity.RunMetadata, now time.Time) *entity.FinalResult {
	times := make(map[string]float64, len(c.ProcessingTimes))
	for stage, d := range c.ProcessingTimes {
		times[stage] = d.Seconds()
	}

	res := &entity.FinalResult{
		TaskID:         c.TaskID,
		AttemptID:      c.AttemptID,
		Filename:       filepath.Base(c.FilePath),
		ProcessedAt:    now.UTC(),
		Metadata:       meta,
		Structured:     c.Structured,
		ProductTables:  c.ProductTables,
		RiskAnalysis:   entity.RiskAnalysis{Summary: c.RiskSummary, Risks: c.Risks},
		Opportunities:  c.Opportunities,
		QualityScore:   c.QualityScore,
		QualityDetails: c.QualityDetails,
		Summary: entity.ResultSummary{
			TotalPages:         c.Pages,
			TablesFound:        len(c.Tables),
			ProductTables:      len(c.ProductTables),
			TotalItems:         c.TotalItems(),
			RisksIdentified:    len(c.Risks),
			OpportunitiesFound: len(c.Opportunities),
			QualityScore:       c.QualityScore,
			ProcessingSeconds:  c.TotalProcessingTime().Seconds(),
		},
		ProcessingTimes: times,
		Errors:          c.Errors,
		Warnings:        c.Warnings,
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	if res.ProductTables == nil {
		res.ProductTables = []entity.Table{}
	}
	if res.Opportunities == nil {
		res.Opportunities = []entity.Opportunity{}
	}
	return res
}

func scoreTextExtraction(c *entity.ProcessingContext) float64 {
	n := len(c.RawText)
	switch {
	case n == 0:
		return 0.0
	case n < 1000:
		return 0.3
	case n < 5000:
		return 0.6
	default:
		return 1.0
	}
}

func scoreTableExtraction(c *entity.ProcessingContext) float64 {
	valid := 0
	for i := range c.Tables {
		if c.Tables[i].Valid() {
			valid++
		}
	}
	switch {
	case valid == 0:
		return 0.3
	case valid < 3:
		return 0.7
	default:
		return 1.0
	}
}

func scoreAIExtraction(c *entity.ProcessingContext) float64 {
	if c.Structured == nil {
		return 0.0
	}
	found := 0
	if c.Structured.NumeroPregao != "" {
		found++
	}
	if c.Structured.Objeto != "" {
		found++
	}
	if c.Structured.ValorEstimado > 0 {
		found++
	}
	return float64(found) / 3.0
}

func scoreCompleteness(c *entity.ProcessingContext) float64 {
	components := []bool{
		c.RawText != "",
		len(c.Tables) > 0,
		c.Structured != nil && !c.Structured.Empty(),
		len(c.Risks) > 0,
		len(c.Opportunities) > 0,
	}
	present := 0
	for _, ok := range components {
		if ok {
			present++
		}
	}
	return float64(present) / float64(len(components))
}

func scoreConsistency(c *entity.ProcessingContext) float64 {
	score := 1.0 - float64(len(c.Errors))*0.1 - float64(len(c.Warnings))*0.05
	if score < 0 {
		return 0
	}
	return score
}
