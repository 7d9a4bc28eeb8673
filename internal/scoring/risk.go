package scoring

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/entity"
)

var deadlineDayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`prazo de (\d+) dias`),
	regexp.MustCompile(`entrega em (\d+) dias`),
}

// RiskAnalyzer scans document text, structured fields and product
// tables for procurement risks. It is stateless across runs and safe
// for concurrent use.
type RiskAnalyzer struct {
	params Params
	log    *slog.Logger

	// now is injectable for deterministic deadline tests.
	now func() time.Time
}

func NewRiskAnalyzer(params Params, log *slog.Logger) *RiskAnalyzer {
	if log == nil {
		log = slog.Default()
	}
	return &RiskAnalyzer{params: params, log: log, now: time.Now}
}

// Analyze runs every detection rule, deduplicates the findings, orders
// them by priority and builds the aggregate summary.
func (a *RiskAnalyzer) Analyze(text string, info *entity.EditalInfo, tables []entity.Table) entity.RiskAnalysis {
	var all []entity.Risk
	all = append(all, a.textRisks(text)...)
	all = append(all, a.structuredRisks(info)...)
	all = append(all, a.tableRisks(tables)...)
	all = append(all, a.deadlineRisks(text)...)
	all = append(all, a.competitionRisks(text)...)

	unique := a.Deduplicate(all)
	prioritized := Prioritize(unique)
	summary := Summarize(prioritized)

	a.log.Info("riskanalysis.done",
		"identified", len(all),
		"unique", len(prioritized),
		"overall_level", summary.OverallLevel,
	)
	return entity.RiskAnalysis{Summary: summary, Risks: prioritized}
}

func (a *RiskAnalyzer) textRisks(text string) []entity.Risk {
	var risks []entity.Risk
	lower := strings.ToLower(text)

	for _, p := range riskPatterns {
		for _, keyword := range p.keywords {
			if !strings.Contains(lower, keyword) {
				continue
			}
			context := extractContext(text, keyword, a.params.ContextWindow)
			prob, impact := a.adjustScores(p.baseProbability, p.baseImpact, context)

			r := entity.Risk{
				Type:          p.riskType,
				Category:      categorize(keyword, context),
				Title:         "Risco de " + keyword,
				Description:   fmt.Sprintf(p.descriptionTemplate, keyword),
				Probability:   prob,
				Impact:        impact,
				Mitigation:    fmt.Sprintf(p.mitigationTemplate, keyword),
				SourceExcerpt: context,
				Confidence:    0.8,
				Keywords:      []string{keyword},
			}
			r.Finalize()
			risks = append(risks, r)
		}
	}
	return risks
}

func (a *RiskAnalyzer) structuredRisks(info *entity.EditalInfo) []entity.Risk {
	var risks []entity.Risk
	if info == nil {
		return risks
	}

	if info.DataAbertura != nil {
		days := int(info.DataAbertura.Sub(a.now()).Hours() / 24)
		if days < 0 {
			days = 0
		}
		if days < 7 {
			r := entity.Risk{
				Type:        constants.RiskOperational,
				Category:    "prazo",
				Title:       "Prazo Curto para Preparação",
				Description: fmt.Sprintf("Apenas %d dias até a abertura da licitação", days),
				Probability: 0.8,
				Impact:      0.6,
				Mitigation:  "Priorizar preparação da documentação e proposta",
				Confidence:  0.9,
			}
			r.Finalize()
			risks = append(risks, r)
		}
	}

	if info.ValorEstimado > 10_000_000 {
		r := entity.Risk{
			Type:        constants.RiskCommercial,
			Category:    "competição",
			Title:       "Alta Competição por Valor Elevado",
			Description: fmt.Sprintf("Valor estimado de R$ %.2f pode atrair muitos concorrentes", info.ValorEstimado),
			Probability: 0.9,
			Impact:      0.7,
			Mitigation:  "Estratégia de preço competitiva e diferenciação técnica",
			Confidence:  0.8,
		}
		r.Finalize()
		risks = append(risks, r)
	}
	return risks
}

func (a *RiskAnalyzer) tableRisks(tables []entity.Table) []entity.Risk {
	var risks []entity.Risk
	for _, t := range tables {
		if t.Type != entity.TableProducts || len(t.Products) == 0 {
			continue
		}

		complexCount := 0
		highValueCount := 0
		for _, p := range t.Products {
			if isComplexItem(p) {
				complexCount++
			}
			if p.TotalPrice > 100_000 {
				highValueCount++
			}
		}

		if float64(complexCount) > float64(len(t.Products))*0.3 {
			r := entity.Risk{
				Type:        constants.RiskTechnical,
				Category:    "especificação",
				Title:       "Especificações Técnicas Complexas",
				Description: fmt.Sprintf("%d itens com especificações técnicas complexas", complexCount),
				Probability: 0.6,
				Impact:      0.7,
				Mitigation:  "Revisar especificações técnicas com equipe especializada",
				Confidence:  0.7,
			}
			r.Finalize()
			risks = append(risks, r)
		}

		if highValueCount > 0 {
			r := entity.Risk{
				Type:        constants.RiskFinancial,
				Category:    "valor",
				Title:       "Itens de Alto Valor Individual",
				Description: fmt.Sprintf("%d itens com valor individual acima de R$ 100.000", highValueCount),
				Probability: 0.5,
				Impact:      0.8,
				Mitigation:  "Análise detalhada de custos para itens de alto valor",
				Confidence:  0.8,
			}
			r.Finalize()
			risks = append(risks, r)
		}
	}
	return risks
}

func (a *RiskAnalyzer) deadlineRisks(text string) []entity.Risk {
	var risks []entity.Risk
	lower := strings.ToLower(text)

	for _, re := range deadlineDayPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(lower, -1) {
			days, err := strconv.Atoi(lower[m[2]:m[3]])
			if err != nil || days >= 30 {
				continue
			}
			start, end := snapRunes(text, m[0]-100, m[1]+100)

			prob := 1.0 - float64(days)/30.0
			if prob > 0.9 {
				prob = 0.9
			}
			r := entity.Risk{
				Type:          constants.RiskOperational,
				Category:      "prazo",
				Title:         fmt.Sprintf("Prazo Apertado de %d Dias", days),
				Description:   fmt.Sprintf("Prazo de apenas %d dias pode ser desafiador", days),
				Probability:   prob,
				Impact:        0.6,
				Mitigation:    "Planejar recursos dedicados para cumprir prazo",
				SourceExcerpt: strings.TrimSpace(text[start:end]),
				Confidence:    0.8,
			}
			r.Finalize()
			risks = append(risks, r)
		}
	}
	return risks
}

func (a *RiskAnalyzer) competitionRisks(text string) []entity.Risk {
	var risks []entity.Risk
	lower := strings.ToLower(text)

	for _, keyword := range competitionKeywords {
		if !strings.Contains(lower, keyword) {
			continue
		}
		r := entity.Risk{
			Type:        constants.RiskCommercial,
			Category:    "competição",
			Title:       "Alta Competição por " + keyword,
			Description: fmt.Sprintf("Critério de %s indica alta competitividade", keyword),
			Probability: 0.8,
			Impact:      0.5,
			Mitigation:  "Otimizar custos e considerar diferenciação qualitativa",
			Confidence:  0.7,
		}
		r.Finalize()
		risks = append(risks, r)
	}
	return risks
}

// adjustScores compounds the urgency and complexity multipliers found
// in the keyword's surrounding context, clamped to [0,1] by Finalize.
func (a *RiskAnalyzer) adjustScores(baseProb, baseImpact float64, context string) (float64, float64) {
	probMult, impactMult := 1.0, 1.0
	lower := strings.ToLower(context)

	if containsAny(lower, a.params.UrgencyKeywords) {
		probMult *= a.params.UrgencyProbabilityMult
		impactMult *= a.params.UrgencyImpactMult
	}
	if containsAny(lower, a.params.ComplexityKeywords) {
		probMult *= a.params.ComplexityProbabilityMult
		impactMult *= a.params.ComplexityImpactMult
	}
	return baseProb * probMult, baseImpact * impactMult
}

// Deduplicate collapses near-identical findings, keeping the higher
// scored one. Running it over an already deduplicated list is a no-op.
func (a *RiskAnalyzer) Deduplicate(risks []entity.Risk) []entity.Risk {
	if len(risks) <= 1 {
		return risks
	}
	var unique []entity.Risk
	for _, risk := range risks {
		duplicate := false
		for i, existing := range unique {
			if Similarity(risk, existing) > a.params.SimilarityThreshold {
				duplicate = true
				if risk.Score > existing.Score {
					unique[i] = risk
				}
				break
			}
		}
		if !duplicate {
			unique = append(unique, risk)
		}
	}
	return unique
}

// Similarity scores how alike two risks are: Jaccard overlap of title
// words weighted 0.5, same type 0.3, same category 0.2.
func Similarity(a, b entity.Risk) float64 {
	titleSim := jaccard(titleWords(a.Title), titleWords(b.Title))
	typeSim := 0.0
	if a.Type == b.Type {
		typeSim = 1.0
	}
	catSim := 0.0
	if a.Category == b.Category {
		catSim = 1.0
	}
	return titleSim*0.5 + typeSim*0.3 + catSim*0.2
}

// Prioritize orders risks by severity weight, score and confidence,
// most urgent first. The sort is stable so equal keys keep detection
// order.
func Prioritize(risks []entity.Risk) []entity.Risk {
	out := make([]entity.Risk, len(risks))
	copy(out, risks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriorityKey() > out[j].PriorityKey()
	})
	return out
}

// Summarize computes the aggregate assessment over a final risk list.
func Summarize(risks []entity.Risk) entity.RiskSummary {
	s := entity.RiskSummary{
		SeverityCount: map[constants.Severity]int{
			constants.SeverityCritical: 0,
			constants.SeverityHigh:     0,
			constants.SeverityMedium:   0,
			constants.SeverityLow:      0,
		},
		RiskCount: len(risks),
	}
	if len(risks) == 0 {
		s.OverallLevel = constants.RiskLevelLow
		return s
	}

	typeCounts := map[string]int{}
	for _, r := range risks {
		s.SeverityCount[r.Severity]++
		s.TotalScore += r.Score
		typeCounts[r.Type]++
	}
	s.AverageScore = s.TotalScore / float64(len(risks))

	crit := s.SeverityCount[constants.SeverityCritical]
	high := s.SeverityCount[constants.SeverityHigh]
	med := s.SeverityCount[constants.SeverityMedium]
	switch {
	case crit >= 3 || s.AverageScore >= 0.7:
		s.OverallLevel = constants.RiskLevelCritical
	case crit >= 1 || high >= 3 || s.AverageScore >= 0.5:
		s.OverallLevel = constants.RiskLevelHigh
	case high >= 1 || med >= 3 || s.AverageScore >= 0.3:
		s.OverallLevel = constants.RiskLevelMedium
	default:
		s.OverallLevel = constants.RiskLevelLow
	}

	for t, n := range typeCounts {
		s.TopRiskTypes = append(s.TopRiskTypes, entity.RiskTypeCount{Type: t, Count: n})
	}
	sort.Slice(s.TopRiskTypes, func(i, j int) bool {
		if s.TopRiskTypes[i].Count != s.TopRiskTypes[j].Count {
			return s.TopRiskTypes[i].Count > s.TopRiskTypes[j].Count
		}
		return s.TopRiskTypes[i].Type < s.TopRiskTypes[j].Type
	})
	if len(s.TopRiskTypes) > 5 {
		s.TopRiskTypes = s.TopRiskTypes[:5]
	}
	return s
}

func extractContext(text, keyword string, window int) string {
	lower := strings.ToLower(text)
	pos := strings.Index(lower, strings.ToLower(keyword))
	if pos == -1 {
		return ""
	}
	start, end := snapRunes(text, pos-window, pos+len(keyword)+window)
	return strings.TrimSpace(text[start:end])
}

// snapRunes clamps a byte range to the text and widens it to the
// nearest rune boundaries, so window cuts never split a multi-byte
// character.
func snapRunes(s string, start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	for start > 0 && !utf8.RuneStart(s[start]) {
		start--
	}
	for end < len(s) && !utf8.RuneStart(s[end]) {
		end++
	}
	return start, end
}

func categorize(keyword, context string) string {
	kw := strings.ToLower(keyword)
	ctx := strings.ToLower(context)
	for _, cat := range riskCategoryOrder {
		for _, w := range riskCategories[cat] {
			if strings.Contains(kw, w) || strings.Contains(ctx, w) {
				return cat
			}
		}
	}
	return "geral"
}

func isComplexItem(p entity.ProductRow) bool {
	desc := strings.ToLower(p.Description + " " + p.Specifications)
	return containsAny(desc, complexItemKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func titleWords(title string) map[string]struct{} {
	words := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		words[w] = struct{}{}
	}
	return words
}
