package scoring

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/entity"
)

var volumeIndicators = []string{"grande quantidade", "volume", "lotes", "múltiplas unidades"}

var strategicIndicators = []string{"inovador", "tecnologia", "piloto", "primeira vez", "exclusivo"}

// OpportunityIdentifier derives business opportunities from the
// structured extraction and the completed risk analysis.
type OpportunityIdentifier struct {
	log *slog.Logger
}

func NewOpportunityIdentifier(log *slog.Logger) *OpportunityIdentifier {
	if log == nil {
		log = slog.Default()
	}
	return &OpportunityIdentifier{log: log}
}

// Identify evaluates every opportunity rule over the structured
// extraction, the product tables and the completed risk analysis, and
// returns the hits ordered by score, highest first.
func (oi *OpportunityIdentifier) Identify(info *entity.EditalInfo, tables []entity.Table, analysis entity.RiskAnalysis) []entity.Opportunity {
	var opps []entity.Opportunity

	var value float64
	var objeto, modalidade string
	if info != nil {
		value = info.ValorEstimado
		objeto = strings.ToLower(info.Objeto)
		modalidade = strings.ToLower(info.Modalidade)
	}

	if value > 1_000_000 {
		opps = append(opps, finalized(entity.Opportunity{
			Type:                 constants.OpportunityValue,
			Title:                "Contrato de Alto Valor",
			Description:          fmt.Sprintf("Oportunidade de contrato com valor estimado de R$ %.2f", value),
			EstimatedValue:       value,
			ProfitPotential:      value * 0.15,
			SuccessProbability:   0.3,
			ROIEstimate:          3.0,
			CompetitiveAdvantage: "Necessário preço competitivo e capacidade operacional comprovada",
		}))
	}

	if containsAny(objeto, volumeIndicators) || hasBulkItems(tables) {
		opps = append(opps, finalized(entity.Opportunity{
			Type:                 constants.OpportunityVolume,
			Title:                "Oportunidade de Alto Volume",
			Description:          "Contrato com potencial de grandes volumes de fornecimento",
			EstimatedValue:       value,
			ProfitPotential:      value * 0.12,
			SuccessProbability:   0.4,
			ROIEstimate:          2.5,
			CompetitiveAdvantage: "Capacidade de produção e fornecimento em escala",
		}))
	}

	if strings.Contains(objeto, "ata de registro") || strings.Contains(modalidade, "arp") {
		opps = append(opps, finalized(entity.Opportunity{
			Type:                 constants.OpportunityRecurring,
			Title:                "Fornecimento Recorrente via ARP",
			Description:          "Oportunidade de fornecimento recorrente através de Ata de Registro de Preços",
			EstimatedValue:       value * 2,
			ProfitPotential:      value * 0.20,
			SuccessProbability:   0.5,
			ROIEstimate:          3.5,
			CompetitiveAdvantage: "Relacionamento de longo prazo e previsibilidade de demanda",
		}))
	}

	if containsAny(objeto, strategicIndicators) {
		opps = append(opps, finalized(entity.Opportunity{
			Type:                 constants.OpportunityStrategic,
			Title:                "Posicionamento Estratégico",
			Description:          "Oportunidade de posicionamento em área estratégica ou inovadora",
			EstimatedValue:       value,
			ProfitPotential:      value * 0.25,
			SuccessProbability:   0.6,
			ROIEstimate:          4.0,
			CompetitiveAdvantage: "Diferenciação técnica e capacidade de inovação",
		}))
	}

	if countHighTechnicalRisks(analysis.Risks) >= 2 {
		opps = append(opps, finalized(entity.Opportunity{
			Type:                 constants.OpportunityStrategic,
			Title:                "Baixa Concorrência por Complexidade",
			Description:          "Oportunidade com potencial baixa concorrência devido à alta complexidade técnica",
			EstimatedValue:       value,
			ProfitPotential:      value * 0.30,
			SuccessProbability:   0.7,
			ROIEstimate:          5.0,
			CompetitiveAdvantage: "Expertise técnica especializada reduz número de competidores",
		}))
	}

	if capital := matchCapital(objeto); capital != "" {
		opps = append(opps, finalized(entity.Opportunity{
			Type:                 constants.OpportunityGeographic,
			Title:                "Expansão Geográfica - " + capital,
			Description:          "Oportunidade de expansão ou fortalecimento na região de " + capital,
			SuccessProbability:   0.4,
			ROIEstimate:          2.0,
			CompetitiveAdvantage: "Presença local ou parcerias regionais estratégicas",
		}))
	}

	sort.SliceStable(opps, func(i, j int) bool { return opps[i].Score > opps[j].Score })

	oi.log.Info("opportunities.identified", "count", len(opps))
	return opps
}

// hasBulkItems reports whether any product line item asks for more
// than 100 units, the table-level volume signal.
func hasBulkItems(tables []entity.Table) bool {
	for _, t := range tables {
		for _, p := range t.Products {
			if p.Quantity > 100 {
				return true
			}
		}
	}
	return false
}

// countHighTechnicalRisks counts technical risks at alta or crítica
// severity, the low-competition signal.
func countHighTechnicalRisks(risks []entity.Risk) int {
	n := 0
	for _, r := range risks {
		if r.Type == constants.RiskTechnical &&
			(r.Severity == constants.SeverityHigh || r.Severity == constants.SeverityCritical) {
			n++
		}
	}
	return n
}

func matchCapital(description string) string {
	for _, capital := range stateCapitals {
		if strings.Contains(description, capital) {
			return titleCase(capital)
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

func finalized(o entity.Opportunity) entity.Opportunity {
	o.Finalize()
	return o
}
