package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/licitalab/editalscan/internal/entity"
)

// Service turns a final processing result into an XLSX workbook for the
// commercial team: one summary sheet plus product, risk and opportunity
// listings.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

const (
	sheetSummary       = "Resumo"
	sheetProducts      = "Produtos"
	sheetRisks         = "Riscos"
	sheetOpportunities = "Oportunidades"
)

// BuildResultXLSX returns an XLSX workbook (as bytes) for one result.
func (s *Service) BuildResultXLSX(result *entity.FinalResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("nil result")
	}
	start := time.Now()

	f := excelize.NewFile()
	if err := renameDefaultSheet(f, sheetSummary); err != nil {
		return nil, err
	}
	s.writeSummary(f, result)

	if err := s.writeProducts(f, result); err != nil {
		return nil, err
	}
	if err := s.writeRisks(f, result); err != nil {
		return nil, err
	}
	if err := s.writeOpportunities(f, result); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"task_id", result.TaskID.String(),
		"products", len(collectProducts(result)),
		"risks", len(result.RiskAnalysis.Risks),
		"opportunities", len(result.Opportunities),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSummary(f *excelize.File, result *entity.FinalResult) {
	rows := [][2]any{
		{"Arquivo", result.Filename},
		{"Processado em", result.ProcessedAt.Format("02/01/2006 15:04")},
	}
	if info := result.Structured; info != nil {
		rows = append(rows,
			[2]any{"Número do Pregão", info.NumeroPregao},
			[2]any{"UASG", info.UASG},
			[2]any{"Órgão", info.Orgao},
			[2]any{"Objeto", truncate(info.Objeto, 300)},
			[2]any{"Valor Estimado", info.ValorEstimado},
			[2]any{"Modalidade", info.Modalidade},
			[2]any{"Tipo de Licitação", info.TipoLicitacao},
		)
		if info.DataAbertura != nil {
			rows = append(rows, [2]any{"Data de Abertura", info.DataAbertura.Format("02/01/2006 15:04")})
		}
	}
	rows = append(rows,
		[2]any{"Páginas", result.Summary.TotalPages},
		[2]any{"Tabelas Encontradas", result.Summary.TablesFound},
		[2]any{"Itens", result.Summary.TotalItems},
		[2]any{"Riscos Identificados", result.Summary.RisksIdentified},
		[2]any{"Nível de Risco", result.RiskAnalysis.Summary.OverallLevel},
		[2]any{"Oportunidades", result.Summary.OpportunitiesFound},
		[2]any{"Qualidade", result.QualityScore},
		[2]any{"Tempo de Processamento (s)", result.Summary.ProcessingSeconds},
	)

	for i, kv := range rows {
		setCell(f, sheetSummary, 1, i+1, kv[0])
		setCell(f, sheetSummary, 2, i+1, kv[1])
	}
	_ = f.SetColWidth(sheetSummary, "A", "A", 28)
	_ = f.SetColWidth(sheetSummary, "B", "B", 60)
}

func (s *Service) writeProducts(f *excelize.File, result *entity.FinalResult) error {
	if _, err := f.NewSheet(sheetProducts); err != nil {
		return err
	}
	writeHeader(f, sheetProducts, []string{"Item", "Descrição", "Quantidade", "Unidade", "Valor Unitário", "Valor Total"})

	row := 2
	for _, p := range collectProducts(result) {
		setCell(f, sheetProducts, 1, row, p.Item)
		setCell(f, sheetProducts, 2, row, truncate(p.Description, 140))
		setCell(f, sheetProducts, 3, row, p.Quantity)
		setCell(f, sheetProducts, 4, row, p.Unit)
		setCell(f, sheetProducts, 5, row, p.UnitPrice)
		setCell(f, sheetProducts, 6, row, p.TotalPrice)
		row++
	}
	_ = f.SetColWidth(sheetProducts, "B", "B", 48)
	_ = f.SetColWidth(sheetProducts, "E", "F", 16)
	return nil
}

func (s *Service) writeRisks(f *excelize.File, result *entity.FinalResult) error {
	if _, err := f.NewSheet(sheetRisks); err != nil {
		return err
	}
	writeHeader(f, sheetRisks, []string{"Título", "Categoria", "Severidade", "Probabilidade", "Impacto", "Pontuação", "Mitigação"})

	row := 2
	for _, r := range result.RiskAnalysis.Risks {
		setCell(f, sheetRisks, 1, row, r.Title)
		setCell(f, sheetRisks, 2, row, r.Category)
		setCell(f, sheetRisks, 3, row, string(r.Severity))
		setCell(f, sheetRisks, 4, row, r.Probability)
		setCell(f, sheetRisks, 5, row, r.Impact)
		setCell(f, sheetRisks, 6, row, r.Score)
		setCell(f, sheetRisks, 7, row, truncate(r.Mitigation, 200))
		row++
	}
	_ = f.SetColWidth(sheetRisks, "A", "A", 40)
	_ = f.SetColWidth(sheetRisks, "G", "G", 60)
	return nil
}

func (s *Service) writeOpportunities(f *excelize.File, result *entity.FinalResult) error {
	if _, err := f.NewSheet(sheetOpportunities); err != nil {
		return err
	}
	writeHeader(f, sheetOpportunities, []string{"Título", "Tipo", "Prioridade", "Pontuação", "Valor Estimado", "Potencial de Lucro", "Descrição"})

	row := 2
	for _, o := range result.Opportunities {
		setCell(f, sheetOpportunities, 1, row, o.Title)
		setCell(f, sheetOpportunities, 2, row, o.Type)
		setCell(f, sheetOpportunities, 3, row, string(o.Priority))
		setCell(f, sheetOpportunities, 4, row, o.Score)
		setCell(f, sheetOpportunities, 5, row, o.EstimatedValue)
		setCell(f, sheetOpportunities, 6, row, o.ProfitPotential)
		setCell(f, sheetOpportunities, 7, row, truncate(o.Description, 200))
		row++
	}
	_ = f.SetColWidth(sheetOpportunities, "A", "A", 40)
	_ = f.SetColWidth(sheetOpportunities, "G", "G", 60)
	return nil
}

func collectProducts(result *entity.FinalResult) []entity.ProductRow {
	var products []entity.ProductRow
	for _, t := range result.ProductTables {
		products = append(products, t.Products...)
	}
	return products
}

func renameDefaultSheet(f *excelize.File, name string) error {
	// excelize always creates "Sheet1"; reuse it as the first sheet.
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		setCell(f, sheet, i+1, 1, h)
	}
}

func setCell(f *excelize.File, sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, v)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
