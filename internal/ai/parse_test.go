package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitalab/editalscan/internal/common"
)

func TestExtractJSONIslandObject(t *testing.T) {
	raw := `Claro! Aqui está o resultado: {"numero_pregao": "001/2025", "uasg": "986531"} Espero ter ajudado.`
	island, err := ExtractJSONIsland(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"numero_pregao": "001/2025", "uasg": "986531"}`, string(island))
}

func TestExtractJSONIslandNestedBraces(t *testing.T) {
	raw := `prefixo {"a": {"b": [1, 2, {"c": "}"}]}} sufixo {"outro": 1}`
	island, err := ExtractJSONIsland(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": {"b": [1, 2, {"c": "}"}]}}`, string(island))
}

func TestExtractJSONIslandBracesInsideStrings(t *testing.T) {
	raw := `{"objeto": "fornecimento de peças { especiais } com escape \" interno"}`
	island, err := ExtractJSONIsland(raw)
	require.NoError(t, err)
	assert.Contains(t, string(island), "especiais")
}

func TestExtractJSONIslandArray(t *testing.T) {
	raw := `resposta: [1, 2, 3]`
	island, err := ExtractJSONIsland(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2, 3]`, string(island))
}

func TestExtractJSONIslandErrors(t *testing.T) {
	_, err := ExtractJSONIsland("nenhum json aqui")
	assert.ErrorIs(t, err, common.ErrAIResponseMalformed)

	_, err = ExtractJSONIsland(`{"aberto": true`)
	assert.ErrorIs(t, err, common.ErrAIResponseMalformed)

	_, err = ExtractJSONIsland(`{invalid json}`)
	assert.ErrorIs(t, err, common.ErrAIResponseMalformed)
}

func TestParseStructuredValidatesSchema(t *testing.T) {
	schema := BuildEditalJSONSchema()

	island, err := ParseStructured(`{"numero_pregao": "001/2025", "valor_estimado": 170000}`, schema)
	require.NoError(t, err)
	assert.NotEmpty(t, island)

	// valor_estimado may also arrive as a Brazilian-formatted string.
	_, err = ParseStructured(`{"valor_estimado": "R$ 170.000,00"}`, schema)
	require.NoError(t, err)

	// Wrong shape for a known field is malformed, not coerced.
	_, err = ParseStructured(`{"objeto": 123}`, schema)
	assert.ErrorIs(t, err, common.ErrAIResponseMalformed)
}

func TestChunkTextRespectsWordBoundaries(t *testing.T) {
	text := "uma duas três quatro cinco seis sete oito nove dez"
	chunks := ChunkText(text, 20)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 20)
		assert.NotContains(t, " "+c+" ", " trê ") // no word was split
	}

	assert.Equal(t, []string{text}, ChunkText(text, 1000))
	assert.Equal(t, []string{text}, ChunkText(text, 0))
}
