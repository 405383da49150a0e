// Package util holds small internal helpers shared across packages without
// committing to public API stability.
package util

import "fmt"

// ValidationError reports a single schema violation for a tool parameter.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
}

// ValidateParams checks params against a minimal JSON-Schema-like object
// schema: required fields must be present and declared property types must
// match. Extra fields not named in the schema are allowed. The first
// violation found is returned.
func ValidateParams(params map[string]any, schema map[string]any) error {
	for _, field := range requiredFields(schema) {
		if v, ok := params[field]; !ok || v == nil {
			return &ValidationError{Field: field, Message: "required field is missing"}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for field, value := range params {
		prop, ok := props[field].(map[string]any)
		if !ok {
			continue
		}
		declared, _ := prop["type"].(string)
		if declared == "" || value == nil {
			continue
		}
		if !typeMatches(value, declared) {
			return &ValidationError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", declared, value),
			}
		}
	}
	return nil
}

// requiredFields tolerates both []string (hand-written schemas) and []any
// (schemas decoded from JSON or YAML).
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func typeMatches(value any, declared string) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64: // JSON decodes every number to float64
			return v == float64(int64(v))
		default:
			return false
		}
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		default:
			return false
		}
	case "array":
		switch value.(type) {
		case []any, []string:
			return true
		default:
			return false
		}
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
