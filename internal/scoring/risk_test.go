package scoring

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/entity"
)

func newTestAnalyzer() *RiskAnalyzer {
	a := NewRiskAnalyzer(DefaultParams(), nil)
	a.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestTextRisksKeywordMatch(t *testing.T) {
	a := newTestAnalyzer()

	risks := a.textRisks("O edital exige certificação do produto junto ao órgão competente.")
	require.Len(t, risks, 1)

	r := risks[0]
	assert.Equal(t, constants.RiskTechnical, r.Type)
	assert.Equal(t, "Risco de certificação", r.Title)
	assert.InDelta(t, 0.6, r.Probability, 1e-9)
	assert.InDelta(t, 0.7, r.Impact, 1e-9)
	assert.InDelta(t, 0.42, r.Score, 1e-9)
	assert.Equal(t, constants.SeverityHigh, r.Severity)
	assert.NotEmpty(t, r.SourceExcerpt)
}

func TestContextAdjustmentUrgency(t *testing.T) {
	a := newTestAnalyzer()

	risks := a.textRisks("Fornecimento urgente: certificação obrigatória dos equipamentos.")
	require.Len(t, risks, 1)

	r := risks[0]
	assert.InDelta(t, 0.6*1.3, r.Probability, 1e-9)
	assert.InDelta(t, 0.7*1.2, r.Impact, 1e-9)
	assert.InDelta(t, r.Probability*r.Impact, r.Score, 1e-9)
}

func TestContextAdjustmentCompoundsAndClamps(t *testing.T) {
	a := newTestAnalyzer()

	// Urgency and complexity markers both present: multipliers compound
	// and probability saturates at 1.
	prob, impact := a.adjustScores(0.7, 0.8, "prazo urgente para serviço técnico especializado")
	assert.InDelta(t, 0.7*1.3*1.2, prob, 1e-9)
	assert.InDelta(t, 0.8*1.2*1.1, impact, 1e-9)

	r := entity.Risk{Probability: prob, Impact: impact}
	r.Finalize()
	assert.LessOrEqual(t, r.Probability, 1.0)
	assert.LessOrEqual(t, r.Impact, 1.0)
}

func TestStructuredRisksShortDeadlineAndHighValue(t *testing.T) {
	a := newTestAnalyzer()

	opening := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	risks := a.structuredRisks(&entity.EditalInfo{
		DataAbertura:  &opening,
		ValorEstimado: 15_000_000,
	})
	require.Len(t, risks, 2)

	assert.Equal(t, "Prazo Curto para Preparação", risks[0].Title)
	assert.InDelta(t, 0.48, risks[0].Score, 1e-9)
	assert.Equal(t, constants.SeverityHigh, risks[0].Severity)

	assert.Equal(t, "Alta Competição por Valor Elevado", risks[1].Title)
	assert.InDelta(t, 0.63, risks[1].Score, 1e-9)
}

func TestStructuredRisksNoFindings(t *testing.T) {
	a := newTestAnalyzer()

	opening := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	risks := a.structuredRisks(&entity.EditalInfo{DataAbertura: &opening, ValorEstimado: 50_000})
	assert.Empty(t, risks)
	assert.Empty(t, a.structuredRisks(nil))
}

func TestExtractContextKeepsRuneBoundaries(t *testing.T) {
	a := newTestAnalyzer()

	// 100 two-byte runes put the window start in the middle of one.
	text := strings.Repeat("ã", 100) + " certificação obrigatória dos equipamentos"
	risks := a.textRisks(text)
	require.NotEmpty(t, risks)
	for _, r := range risks {
		assert.True(t, utf8.ValidString(r.SourceExcerpt), "excerpt %q", r.SourceExcerpt)
	}
}

func TestDeadlineRiskExcerptKeepsRuneBoundaries(t *testing.T) {
	a := newTestAnalyzer()

	text := strings.Repeat("é", 80) + " prazo de 5 dias " + strings.Repeat("õ", 80)
	risks := a.deadlineRisks(text)
	require.Len(t, risks, 1)
	assert.True(t, utf8.ValidString(risks[0].SourceExcerpt))
	assert.Contains(t, risks[0].SourceExcerpt, "prazo de 5 dias")
}

func TestDeadlineRisks(t *testing.T) {
	a := newTestAnalyzer()

	risks := a.deadlineRisks("O prazo de entrega é o prazo de 10 dias corridos após a assinatura.")
	require.Len(t, risks, 1)

	r := risks[0]
	assert.Equal(t, "Prazo Apertado de 10 Dias", r.Title)
	assert.InDelta(t, 1.0-10.0/30.0, r.Probability, 1e-9)
	assert.InDelta(t, 0.6, r.Impact, 1e-9)
	assert.Equal(t, constants.SeverityHigh, r.Severity)

	// 30 days or more is not flagged.
	assert.Empty(t, a.deadlineRisks("entrega no prazo de 45 dias"))
}

func TestDeadlineRiskProbabilityCap(t *testing.T) {
	a := newTestAnalyzer()

	risks := a.deadlineRisks("prazo de 1 dias")
	require.Len(t, risks, 1)
	assert.InDelta(t, 0.9, risks[0].Probability, 1e-9)
}

func TestTableRisks(t *testing.T) {
	a := newTestAnalyzer()

	tables := []entity.Table{{
		Type: entity.TableProducts,
		Rows: [][]string{{"x"}},
		Products: []entity.ProductRow{
			{Description: "Servidor com certificação Anatel e instalação inclusa", TotalPrice: 250_000},
			{Description: "Sistema de monitoramento com integração", TotalPrice: 80_000},
			{Description: "Cabo de rede cat6", TotalPrice: 1_200},
		},
	}}

	risks := a.tableRisks(tables)
	require.Len(t, risks, 2)
	assert.Equal(t, "Especificações Técnicas Complexas", risks[0].Title)
	assert.InDelta(t, 0.42, risks[0].Score, 1e-9)
	assert.Equal(t, "Itens de Alto Valor Individual", risks[1].Title)
	assert.InDelta(t, 0.40, risks[1].Score, 1e-9)
}

func TestTableRisksIgnoresNonProductTables(t *testing.T) {
	a := newTestAnalyzer()

	tables := []entity.Table{{
		Type: entity.TableSchedule,
		Products: []entity.ProductRow{
			{Description: "instalação de software", TotalPrice: 500_000},
		},
	}}
	assert.Empty(t, a.tableRisks(tables))
}

func TestDeduplicateKeepsHigherScore(t *testing.T) {
	a := newTestAnalyzer()

	low := entity.Risk{Type: constants.RiskTechnical, Category: "técnico", Title: "Risco de certificação", Probability: 0.4, Impact: 0.5}
	low.Finalize()
	high := entity.Risk{Type: constants.RiskTechnical, Category: "técnico", Title: "Risco de certificação", Probability: 0.8, Impact: 0.9}
	high.Finalize()
	other := entity.Risk{Type: constants.RiskFinancial, Category: "financeiro", Title: "Risco de prazo de pagamento", Probability: 0.4, Impact: 0.5}
	other.Finalize()

	unique := a.Deduplicate([]entity.Risk{low, high, other})
	require.Len(t, unique, 2)
	assert.InDelta(t, high.Score, unique[0].Score, 1e-9)

	// Idempotent: a second pass changes nothing.
	again := a.Deduplicate(unique)
	assert.Equal(t, unique, again)
}

func TestSimilarity(t *testing.T) {
	r1 := entity.Risk{Type: constants.RiskTechnical, Category: "técnico", Title: "Risco de certificação"}
	r2 := entity.Risk{Type: constants.RiskTechnical, Category: "técnico", Title: "Risco de certificação"}
	assert.InDelta(t, 1.0, Similarity(r1, r2), 1e-9)

	r3 := entity.Risk{Type: constants.RiskFinancial, Category: "valor", Title: "Itens de alto valor"}
	assert.Less(t, Similarity(r1, r3), 0.7)
}

func TestPrioritizeOrdersByWeightScoreConfidence(t *testing.T) {
	mk := func(prob, impact, conf float64) entity.Risk {
		r := entity.Risk{Probability: prob, Impact: impact, Confidence: conf}
		r.Finalize()
		return r
	}
	weak := mk(0.3, 0.4, 0.5)
	strong := mk(0.9, 0.9, 0.9)
	mid := mk(0.6, 0.7, 0.8)

	out := Prioritize([]entity.Risk{weak, strong, mid})
	require.Len(t, out, 3)
	assert.InDelta(t, strong.Score, out[0].Score, 1e-9)
	assert.InDelta(t, mid.Score, out[1].Score, 1e-9)
	assert.InDelta(t, weak.Score, out[2].Score, 1e-9)
}

func TestSummarizeOverallLevels(t *testing.T) {
	mk := func(score float64) entity.Risk {
		r := entity.Risk{Probability: 1, Impact: score, Confidence: 1}
		r.Finalize()
		return r
	}

	tests := []struct {
		name  string
		risks []entity.Risk
		want  string
	}{
		{"empty", nil, constants.RiskLevelLow},
		{"three criticals", []entity.Risk{mk(0.75), mk(0.8), mk(0.9), mk(0.1)}, constants.RiskLevelCritical},
		{"one critical", []entity.Risk{mk(0.75), mk(0.1), mk(0.1)}, constants.RiskLevelHigh},
		{"three high", []entity.Risk{mk(0.5), mk(0.45), mk(0.6), mk(0.05), mk(0.05), mk(0.05)}, constants.RiskLevelHigh},
		{"one high", []entity.Risk{mk(0.45), mk(0.05), mk(0.05)}, constants.RiskLevelMedium},
		{"all low", []entity.Risk{mk(0.05), mk(0.1)}, constants.RiskLevelLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.risks)
			assert.Equal(t, tt.want, s.OverallLevel)
			assert.Equal(t, len(tt.risks), s.RiskCount)
		})
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	a := newTestAnalyzer()

	text := "Pregão por menor preço. Exigida certificação dos equipamentos e prazo de 10 dias para entrega."
	analysis := a.Analyze(text, &entity.EditalInfo{ValorEstimado: 500_000}, nil)

	require.NotEmpty(t, analysis.Risks)
	assert.NotEmpty(t, analysis.Summary.OverallLevel)
	assert.Equal(t, len(analysis.Risks), analysis.Summary.RiskCount)

	// Prioritization invariant holds over the final list.
	for i := 1; i < len(analysis.Risks); i++ {
		assert.GreaterOrEqual(t, analysis.Risks[i-1].PriorityKey(), analysis.Risks[i].PriorityKey())
	}
}

func TestLoadParamsFileDefaults(t *testing.T) {
	p, err := LoadParamsFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), p)
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	p.SimilarityThreshold = 0
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.UrgencyProbabilityMult = 0.5
	assert.Error(t, p.Validate())

	assert.NoError(t, DefaultParams().Validate())
}
