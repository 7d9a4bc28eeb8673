package export

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/entity"
)

func sampleResult() *entity.FinalResult {
	opened := time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)
	return &entity.FinalResult{
		TaskID:      uuid.New(),
		Filename:    "edital.pdf",
		ProcessedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Structured: &entity.EditalInfo{
			NumeroPregao:  "001/2025",
			UASG:          "986531",
			Orgao:         "Ministério da Gestão",
			Objeto:        "Aquisição de notebooks",
			ValorEstimado: 170000,
			DataAbertura:  &opened,
			Modalidade:    "Pregão Eletrônico",
			TipoLicitacao: "Menor Preço",
		},
		ProductTables: []entity.Table{{
			Type: entity.TableProducts,
			Products: []entity.ProductRow{
				{Item: "1", Description: "Notebook profissional", Quantity: 10, Unit: "un", UnitPrice: 5000, TotalPrice: 50000},
				{Item: "2", Description: "Mouse óptico", Quantity: 50, Unit: "un", UnitPrice: 40, TotalPrice: 2000},
			},
		}},
		RiskAnalysis: entity.RiskAnalysis{
			Summary: entity.RiskSummary{OverallLevel: "alto"},
			Risks: []entity.Risk{{
				Title:       "Prazo Apertado de 10 Dias",
				Category:    "prazo",
				Severity:    constants.SeverityHigh,
				Probability: 0.67,
				Impact:      0.6,
				Score:       0.4,
				Mitigation:  "Verificar capacidade de entrega",
			}},
		},
		Opportunities: []entity.Opportunity{{
			Title:          "Licitação de Alto Valor",
			Type:           "valor",
			Priority:       constants.PriorityMedium,
			Score:          45,
			EstimatedValue: 170000,
		}},
		QualityScore: 78.5,
		Summary:      entity.ResultSummary{TotalPages: 12, TablesFound: 3, TotalItems: 2, RisksIdentified: 1, OpportunitiesFound: 1},
	}
}

func TestBuildResultXLSX(t *testing.T) {
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))

	data, err := svc.BuildResultXLSX(sampleResult())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Resumo", "Produtos", "Riscos", "Oportunidades"}, f.GetSheetList())

	rows, err := f.GetRows("Produtos")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Notebook profissional", rows[1][1])

	rows, err = f.GetRows("Riscos")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Prazo Apertado de 10 Dias", rows[1][0])
	assert.Equal(t, "alta", rows[1][2])

	summary, err := f.GetRows("Resumo")
	require.NoError(t, err)
	assert.Equal(t, "Arquivo", summary[0][0])
	assert.Equal(t, "edital.pdf", summary[0][1])
}

func TestBuildResultXLSXNilResult(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.BuildResultXLSX(nil)
	assert.Error(t, err)
}
