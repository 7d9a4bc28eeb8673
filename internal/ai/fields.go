package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/extract"
)

var dateLayouts = []string{
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var fallbackPatterns = map[string]*regexp.Regexp{
	"numero_pregao": regexp.MustCompile(`(?i)Pregão\s+(?:Eletrônico\s+)?n[º°o]?\s*(\d+/\d+)`),
	"uasg":          regexp.MustCompile(`(?i)UASG\s*:?\s*(\d+)`),
	"orgao":         regexp.MustCompile(`(?i)(?:Órgão|ÓRGÃO)\s*:?\s*([^\n]+)`),
}

// MapFields converts a validated AI extraction into an EditalInfo.
// Precedence per field: AI output first, then caller metadata, then
// regex fallback over the raw text for the identifying fields.
func MapFields(raw json.RawMessage, meta entity.RunMetadata, fullText string) *entity.EditalInfo {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		m = map[string]any{}
	}

	info := &entity.EditalInfo{
		NumeroPregao:       stringField(m, "numero_pregao"),
		UASG:               stringField(m, "uasg"),
		Orgao:              stringField(m, "orgao"),
		Objeto:             stringField(m, "objeto"),
		ValorEstimado:      MoneyField(m, "valor_estimado"),
		DataAbertura:       dateField(m, "data_abertura"),
		Modalidade:         stringField(m, "modalidade"),
		TipoLicitacao:      stringField(m, "tipo_licitacao"),
		CriterioJulgamento: stringField(m, "criterio_julgamento"),
	}

	if info.NumeroPregao == "" {
		info.NumeroPregao = meta.NumeroPregao
	}
	if info.UASG == "" {
		info.UASG = meta.UASG
	}

	if info.NumeroPregao == "" {
		info.NumeroPregao = FallbackFromText(fullText, "numero_pregao")
	}
	if info.UASG == "" {
		info.UASG = FallbackFromText(fullText, "uasg")
	}
	if info.Orgao == "" {
		info.Orgao = FallbackFromText(fullText, "orgao")
	}

	if info.Modalidade == "" {
		info.Modalidade = "Pregão Eletrônico"
	}
	if info.TipoLicitacao == "" {
		info.TipoLicitacao = "Menor Preço"
	}
	return info
}

// FallbackFromText extracts one of the identifying fields straight from
// raw text with the known document patterns.
func FallbackFromText(text, field string) string {
	re, ok := fallbackPatterns[field]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// MoneyField parses a monetary value out of a decoded JSON map,
// accepting numbers and Brazilian-formatted strings.
func MoneyField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		if f, ok := extract.ParseDecimal(v); ok {
			return f
		}
	}
	return 0
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "não informado") {
			return ""
		}
		return s
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", v), ".0")
	}
	return ""
}

func dateField(m map[string]any, key string) *time.Time {
	s, _ := m[key].(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return ParseDate(s)
}

// ParseDate tries the date formats that appear in editais.
func ParseDate(s string) *time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
