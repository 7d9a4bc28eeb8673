package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/licitalab/editalscan/internal/common"
)

// ExtractJSONIsland returns the first balanced JSON object or array in
// free text. Models wrap their JSON in prose; only a strict island
// extraction keeps malformed output classifiable instead of coerced.
func ExtractJSONIsland(s string) ([]byte, error) {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("%w: no JSON value found", common.ErrAIResponseMalformed)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				island := []byte(s[start : i+1])
				if !json.Valid(island) {
					return nil, fmt.Errorf("%w: unparseable JSON island", common.ErrAIResponseMalformed)
				}
				return island, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: unbalanced JSON value", common.ErrAIResponseMalformed)
}

// ParseStructured extracts the JSON island from a raw completion and
// validates it against the given schema. Any failure is a ParseError
// (ErrAIResponseMalformed), never a silent best-guess.
func ParseStructured(raw string, schemaMap map[string]any) (json.RawMessage, error) {
	island, err := ExtractJSONIsland(raw)
	if err != nil {
		return nil, err
	}
	if err := validateAgainstSchema(schemaMap, island); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAIResponseMalformed, err)
	}
	return island, nil
}

func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
