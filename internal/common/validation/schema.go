package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema defines the structure for function parameter schemas
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StringObjectSchema builds an object schema whose named properties are all
// strings. Presence is not enforced here; required keys are checked in their
// declared order by FirstMissing so the first gap is deterministic.
func StringObjectSchema(descriptions map[string]string) JSONSchema {
	props := make(map[string]Property, len(descriptions))
	for name, desc := range descriptions {
		props[name] = Property{Type: "string", Description: desc}
	}
	return JSONSchema{
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: true,
	}
}

// ToMap renders the schema as a generic map for gojsonschema and manifests.
func (s JSONSchema) ToMap() map[string]interface{} {
	raw, _ := json.Marshal(s)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return out
}

// ValidateInput validates a document against the schema with gojsonschema.
func ValidateInput(input map[string]interface{}, schema JSONSchema) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewGoLoader(schema.ToMap())
	documentLoader := gojsonschema.NewGoLoader(input)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return vr, nil
}

// FirstMissing returns the first key in keys that is absent from values or
// holds an empty string.
func FirstMissing(values map[string]string, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := values[key]; !ok || v == "" {
			return key, true
		}
	}
	return "", false
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors reports whether any error names field.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
