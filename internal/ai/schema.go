package ai

// BuildEditalJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. The AI response must be an object; individual fields stay
// optional because partial extraction is still usable, but present fields
// must carry the right shape.
func BuildEditalJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"numero_pregao":       map[string]any{"type": "string"},
			"uasg":                stringOrNumber(),
			"orgao":               map[string]any{"type": "string"},
			"objeto":              map[string]any{"type": "string"},
			"valor_estimado":      stringOrNumber(),
			"data_abertura":       map[string]any{"type": "string"},
			"modalidade":          map[string]any{"type": "string"},
			"tipo_licitacao":      map[string]any{"type": "string"},
			"criterio_julgamento": map[string]any{"type": "string"},
		},
	}
}

func stringOrNumber() map[string]any {
	return map[string]any{
		"type": []any{"string", "number"},
	}
}
