package quality

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/entity"
)

func fullContext() *entity.ProcessingContext {
	c := entity.NewProcessingContext(uuid.New(), "t-1", "/tmp/edital.pdf")
	c.RawText = strings.Repeat("edital de licitação ", 300) // >5000 chars
	c.Tables = []entity.Table{
		{Rows: [][]string{{"a"}}},
		{Rows: [][]string{{"b"}}},
		{Rows: [][]string{{"c"}}},
	}
	c.Structured = &entity.EditalInfo{
		NumeroPregao:  "001/2025",
		Objeto:        "Aquisição de equipamentos",
		ValorEstimado: 170000,
	}
	c.Risks = []entity.Risk{{Title: "r"}}
	c.Opportunities = []entity.Opportunity{{Title: "o"}}
	return c
}

func TestScorePerfectRun(t *testing.T) {
	a := NewAggregator(DefaultWeights(), nil)
	c := fullContext()

	a.Score(c)

	assert.InDelta(t, 100.0, c.QualityScore, 1e-9)
	for dim, v := range c.QualityDetails {
		assert.InDelta(t, 1.0, v, 1e-9, dim)
	}
}

func TestScoreTextExtractionBands(t *testing.T) {
	tests := []struct {
		length int
		want   float64
	}{
		{0, 0.0},
		{500, 0.3},
		{3000, 0.6},
		{8000, 1.0},
	}
	for _, tt := range tests {
		c := &entity.ProcessingContext{RawText: strings.Repeat("x", tt.length)}
		assert.InDelta(t, tt.want, scoreTextExtraction(c), 1e-9)
	}
}

func TestScoreTableExtractionCountsOnlyValidTables(t *testing.T) {
	c := &entity.ProcessingContext{Tables: []entity.Table{
		{Headers: []string{"item"}}, // no rows, not valid
		{Rows: [][]string{{"a"}}},
	}}
	assert.InDelta(t, 0.7, scoreTableExtraction(c), 1e-9)

	assert.InDelta(t, 0.3, scoreTableExtraction(&entity.ProcessingContext{}), 1e-9)
}

func TestScoreAIExtractionFraction(t *testing.T) {
	c := &entity.ProcessingContext{Structured: &entity.EditalInfo{
		NumeroPregao: "001/2025",
		Objeto:       "Material de escritório",
	}}
	assert.InDelta(t, 2.0/3.0, scoreAIExtraction(c), 1e-9)

	assert.InDelta(t, 0.0, scoreAIExtraction(&entity.ProcessingContext{}), 1e-9)
}

func TestScoreConsistencyPenalties(t *testing.T) {
	c := &entity.ProcessingContext{
		Errors:   []string{"e1", "e2"},
		Warnings: []string{"w1"},
	}
	assert.InDelta(t, 1.0-0.2-0.05, scoreConsistency(c), 1e-9)

	// Floor at zero.
	c.Errors = make([]string, 15)
	assert.InDelta(t, 0.0, scoreConsistency(c), 1e-9)
}

func TestScoreWeightedAverageAndRounding(t *testing.T) {
	a := NewAggregator(DefaultWeights(), nil)
	c := entity.NewProcessingContext(uuid.New(), "t-1", "/tmp/e.pdf")
	c.RawText = strings.Repeat("x", 2000) // 0.6
	// no tables (0.3), no structured (0.0), completeness 1/5, consistency 1.0

	a.Score(c)

	want := 0.6*0.20 + 0.3*0.25 + 0.0*0.25 + 0.2*0.15 + 1.0*0.15
	assert.InDelta(t, want*100, c.QualityScore, 0.005)
}

func TestCompile(t *testing.T) {
	a := NewAggregator(DefaultWeights(), nil)
	c := fullContext()
	c.Pages = 12
	c.ProductTables = []entity.Table{{
		Type:     entity.TableProducts,
		Rows:     [][]string{{"a"}, {"b"}},
		Products: []entity.ProductRow{{Item: "1"}, {Item: "2"}},
	}}
	c.RiskSummary = entity.RiskSummary{OverallLevel: constants.RiskLevelMedium}
	c.ProcessingTimes["validation"] = 120 * time.Millisecond
	c.ProcessingTimes["text_extraction"] = 880 * time.Millisecond
	a.Score(c)

	meta := entity.RunMetadata{UASG: "986531", NumeroPregao: "001/2025"}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	res := a.Compile(c, meta, now)

	require.NotNil(t, res)
	assert.Equal(t, c.TaskID, res.TaskID)
	assert.Equal(t, "edital.pdf", res.Filename)
	assert.Equal(t, now, res.ProcessedAt)
	assert.Equal(t, meta, res.Metadata)
	assert.Equal(t, 12, res.Summary.TotalPages)
	assert.Equal(t, 3, res.Summary.TablesFound)
	assert.Equal(t, 1, res.Summary.ProductTables)
	assert.Equal(t, 2, res.Summary.TotalItems)
	assert.Equal(t, 1, res.Summary.RisksIdentified)
	assert.InDelta(t, 1.0, res.Summary.ProcessingSeconds, 1e-9)
	assert.InDelta(t, 0.12, res.ProcessingTimes["validation"], 1e-9)
	assert.Equal(t, constants.RiskLevelMedium, res.RiskAnalysis.Summary.OverallLevel)

	// Slices are always serializable as arrays, never null.
	assert.NotNil(t, res.Errors)
	assert.NotNil(t, res.Warnings)
}
