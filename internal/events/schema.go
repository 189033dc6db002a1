package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
)

// schemaDefinitions holds one JSON Schema per event type, keyed by Type.
var schemaDefinitions = map[Type]map[string]any{
	TypeSessionStart: {
		"type":     "object",
		"required": []any{"type", "learnerId", "sessionId"},
		"properties": map[string]any{
			"type":      map[string]any{"const": string(TypeSessionStart)},
			"learnerId": map[string]any{"type": "string", "minLength": 1},
			"sessionId": map[string]any{"type": "string", "minLength": 1},
		},
	},
	TypeSessionEnd: {
		"type":     "object",
		"required": []any{"type", "learnerId", "sessionId"},
		"properties": map[string]any{
			"type":      map[string]any{"const": string(TypeSessionEnd)},
			"learnerId": map[string]any{"type": "string", "minLength": 1},
			"sessionId": map[string]any{"type": "string", "minLength": 1},
		},
	},
	TypePractice: {
		"type":     "object",
		"required": []any{"type", "learnerId", "skillId", "itemId", "correct"},
		"properties": map[string]any{
			"type":           map[string]any{"const": string(TypePractice)},
			"learnerId":      map[string]any{"type": "string", "minLength": 1},
			"skillId":        map[string]any{"type": "string", "minLength": 1},
			"itemId":         map[string]any{"type": "string", "minLength": 1},
			"correct":        map[string]any{"type": "boolean"},
			"responseTimeMs": map[string]any{"type": "number", "minimum": 0},
		},
	},
	TypeDiagnostic: {
		"type":     "object",
		"required": []any{"type", "learnerId", "results"},
		"properties": map[string]any{
			"type":      map[string]any{"const": string(TypeDiagnostic)},
			"learnerId": map[string]any{"type": "string", "minLength": 1},
			"results": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"skillId", "score"},
					"properties": map[string]any{
						"skillId": map[string]any{"type": "string", "minLength": 1},
						"score":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					},
				},
			},
		},
	},
	TypeTransferTest: {
		"type":     "object",
		"required": []any{"type", "learnerId", "skillId", "testId", "transferType", "score"},
		"properties": map[string]any{
			"type":         map[string]any{"const": string(TypeTransferTest)},
			"learnerId":    map[string]any{"type": "string", "minLength": 1},
			"skillId":      map[string]any{"type": "string", "minLength": 1},
			"testId":       map[string]any{"type": "string", "minLength": 1},
			"transferType": map[string]any{"enum": []any{"near", "far"}},
			"score":        map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
	},
}

var schemaCache sync.Map // map[Type]*jsonschema.Schema

func compiledSchema(t Type) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*jsonschema.Schema), nil
	}

	def, ok := schemaDefinitions[t]
	if !ok {
		return nil, fmt.Errorf("no schema registered for event type %q", t)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://noesis/event/%s.json", t)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	schemaCache.Store(t, compiled)
	return compiled, nil
}

// ValidateJSON validates a raw JSON-encoded event against the schema
// for its declared type, rejecting unknown variants and malformed
// payloads with KindMalformedEvent before any factory/validation logic
// ever sees them.
func ValidateJSON(raw []byte) error {
	var envelope struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return errs.Invalid(errs.KindMalformedEvent, "", "malformed event JSON: "+err.Error())
	}

	if _, ok := schemaDefinitions[envelope.Type]; !ok {
		return errs.Invalid(errs.KindMalformedEvent, "type", "unknown event type: "+string(envelope.Type))
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return errs.Invalid(errs.KindMalformedEvent, "", "malformed event JSON: "+err.Error())
	}

	schema, err := compiledSchema(envelope.Type)
	if err != nil {
		return errs.New(errs.KindMalformedEvent, "schema compilation failed").
			WithDetails(map[string]any{"cause": err.Error()})
	}

	if err := schema.Validate(parsed); err != nil {
		return errs.Invalid(errs.KindMalformedEvent, "", "schema validation failed: "+err.Error())
	}

	return nil
}
