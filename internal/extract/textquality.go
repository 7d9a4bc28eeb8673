package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// NeedsOCR decides whether extracted text looks like it came from a
// scanned/image PDF. Triggers when the text is shorter than 100
// characters, or fewer than 70% of its characters are alphanumeric or
// whitespace.
func NeedsOCR(text string) bool {
	runes := []rune(text)
	if len(runes) < 100 {
		return true
	}
	readable := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			readable++
		}
	}
	return float64(readable)/float64(len(runes)) < 0.7
}

// MergeTexts appends OCR output to previously extracted text under a
// marker so downstream excerpts remain attributable.
func MergeTexts(extracted, ocr string) string {
	if extracted == "" {
		return ocr
	}
	if ocr == "" {
		return extracted
	}
	return extracted + "\n\n--- OCR Content ---\n\n" + ocr
}

var sectionPatterns = map[string]*regexp.Regexp{
	"objeto":      regexp.MustCompile(`(?is)(?:OBJETO|1\s*[-–]\s*DO\s+OBJETO)(.*?)(?:2\s*[-–]|\n\n)`),
	"valor":       regexp.MustCompile(`(?is)(?:VALOR|ESTIMADO|ORÇAMENTO)(.*?)(?:\n\n|$)`),
	"prazo":       regexp.MustCompile(`(?is)(?:PRAZO|ENTREGA|EXECUÇÃO)(.*?)(?:\n\n|$)`),
	"pagamento":   regexp.MustCompile(`(?is)(?:PAGAMENTO|CONDIÇÕES)(.*?)(?:\n\n|$)`),
	"habilitacao": regexp.MustCompile(`(?is)(?:HABILITAÇÃO|DOCUMENTOS)(.*?)(?:\n\n|$)`),
}

// IdentifySections pulls the well-known edital sections out of raw text.
// Each section body is capped at 1000 bytes.
func IdentifySections(text string) map[string]string {
	sections := map[string]string{}
	for name, re := range sectionPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			body := strings.TrimSpace(m[1])
			if len(body) > 1000 {
				body = body[:1000]
			}
			sections[name] = body
		}
	}
	return sections
}
