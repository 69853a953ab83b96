package powerbitom

import (
	"fmt"

	"powerbi-tom-skill/internal/common/errors"
	"powerbi-tom-skill/internal/common/validation"
)

// RequireParameters checks keys in order. On the first absent or empty key
// it fails inv and returns the user-facing message; no further keys are
// inspected.
func RequireParameters(inv *Invocation, keys ...string) (map[string]string, string, bool) {
	if missing, found := validation.FirstMissing(inv.Variables, keys...); found {
		inv.Fail(errors.NewInputInsufficientError(missing))
		return nil, insufficientMessage(missing), false
	}

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		values[key] = inv.Variables[key]
	}
	return values, "", true
}

func insufficientMessage(key string) string {
	return fmt.Sprintf("Input insufficient. No %s.", key)
}

// GetInputSchema describes the job variables accepted by fn. Presence is left
// to RequireParameters; the schema only enforces string values.
func GetInputSchema(fn Function) validation.JSONSchema {
	descriptions := make(map[string]string, len(fn.Parameters))
	for _, p := range fn.Parameters {
		descriptions[p.Name] = p.Description
	}
	return validation.StringObjectSchema(descriptions)
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"result": {
				Type:        "string",
				Description: "Natural-language result of the function",
			},
		},
		Required:             []string{"result"},
		AdditionalProperties: false,
	}
}
