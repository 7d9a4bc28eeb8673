package ai

import (
	"fmt"
	"strings"

	"github.com/licitalab/editalscan/internal/entity"
)

// promptTextLimit caps how much raw text is embedded in a prompt.
const promptTextLimit = 5000

// BuildExtractionPrompt asks for the structured fields as JSON.
func BuildExtractionPrompt(text string, tableCount int, meta entity.RunMetadata) string {
	var b strings.Builder
	b.WriteString("Você é um especialista em análise de editais de licitação do governo brasileiro.\n")
	b.WriteString("Analise o seguinte edital e extraia as informações estruturadas.\n\n")
	b.WriteString("TEXTO DO EDITAL:\n")
	b.WriteString(head(text, promptTextLimit))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "TABELAS ENCONTRADAS: %d\n\n", tableCount)
	b.WriteString("METADADOS:\n")
	fmt.Fprintf(&b, "- UASG: %s\n", orDefault(meta.UASG, "Não informado"))
	fmt.Fprintf(&b, "- Ano: %s\n", orDefault(intOrEmpty(meta.Ano), "Não informado"))
	fmt.Fprintf(&b, "- Número: %s\n\n", orDefault(meta.NumeroPregao, "Não informado"))
	b.WriteString(`EXTRAIA AS SEGUINTES INFORMAÇÕES (retorne em formato JSON):
1. numero_pregao: Número do pregão
2. uasg: Código UASG
3. orgao: Nome do órgão
4. objeto: Descrição detalhada do objeto
5. valor_estimado: Valor estimado total (número)
6. data_abertura: Data de abertura (formato: DD/MM/YYYY HH:MM)
7. modalidade: Modalidade da licitação
8. tipo_licitacao: Tipo (menor preço, técnica e preço, etc)
9. criterio_julgamento: Critério de julgamento

Responda APENAS com o JSON estruturado, sem explicações adicionais.
`)
	return b.String()
}

// BuildUnderstandingPrompt asks for requirements and caveats in prose.
func BuildUnderstandingPrompt(text string) string {
	return fmt.Sprintf(`Analise o contexto deste edital e identifique:

1. Principais requisitos técnicos
2. Condições especiais
3. Restrições importantes
4. Pontos de atenção

Texto: %s
`, head(text, promptTextLimit))
}

// BuildValidationPrompt asks the model to sanity-check the extraction.
func BuildValidationPrompt(tableCount int, sections []string) string {
	return fmt.Sprintf(`Valide as seguintes informações extraídas do edital:

Tabelas encontradas: %d
Seções identificadas: %s

Confirme se a extração está completa e coerente.
`, tableCount, strings.Join(sections, ", "))
}

// ChunkText splits text on word boundaries into chunks of at most
// maxLen characters.
func ChunkText(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	var current []string
	length := 0
	for _, word := range strings.Fields(text) {
		wl := len(word) + 1
		if length+wl > maxLen && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			length = 0
		}
		current = append(current, word)
		length += wl
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func intOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}
