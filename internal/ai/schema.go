// README: JSON schema for model responses; bad responses get one corrective retry.
package ai

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema is the documented output contract for the classifier.
const responseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["intention", "confidence"],
  "properties": {
    "intention": {
      "type": "string",
      "enum": ["saludar", "reservar", "cancelar", "consultar", "despedida", "otro"]
    },
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "extractedData": {
      "type": "object",
      "properties": {
        "date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
        "time": {"type": "string", "pattern": "^([01]\\d|2[0-3]):[0-5]\\d$"},
        "guests": {"type": "integer", "minimum": 0, "maximum": 100},
        "phone": {"type": "string"},
        "service": {"type": "string"},
        "products": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name"],
            "properties": {
              "name": {"type": "string"},
              "quantity": {"type": "integer", "minimum": 1}
            }
          }
        }
      }
    },
    "missingFields": {"type": "array", "items": {"type": "string"}},
    "suggestedReply": {"type": "string"},
    "thinking": {"type": "object"}
  }
}`

var compiledSchema = jsonschema.MustCompileString("classifier-response.json", responseSchema)

// ParseResult validates raw model output against the response schema and
// decodes it.
func ParseResult(raw []byte) (*ClassifyResult, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("response violates schema: %w", err)
	}
	var res ClassifyResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
