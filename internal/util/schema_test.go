package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"order_id": map[string]any{"type": "string"},
			"amount":   map[string]any{"type": "number"},
			"items":    map[string]any{"type": "array"},
			"urgent":   map[string]any{"type": "boolean"},
		},
		"required": []string{"order_id"},
	}
}

func TestValidateParams_OK(t *testing.T) {
	err := ValidateParams(map[string]any{"order_id": "1001", "amount": 42.5}, orderSchema())
	assert.NoError(t, err)
}

func TestValidateParams_MissingRequired(t *testing.T) {
	err := ValidateParams(map[string]any{"amount": 10.0}, orderSchema())
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "order_id", vErr.Field)
}

func TestValidateParams_TypeMismatch(t *testing.T) {
	err := ValidateParams(map[string]any{"order_id": 1001}, orderSchema())
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type string")
}

func TestValidateParams_RequiredFromJSONDecodedSchema(t *testing.T) {
	schema := orderSchema()
	schema["required"] = []any{"order_id", "amount"}
	err := ValidateParams(map[string]any{"order_id": "1001"}, orderSchema())
	assert.NoError(t, err)
	err = ValidateParams(map[string]any{"order_id": "1001"}, schema)
	assert.Error(t, err)
}

func TestValidateParams_IntegerTolerance(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{"count": map[string]any{"type": "integer"}},
		"required":   []string{"count"},
	}
	assert.NoError(t, ValidateParams(map[string]any{"count": 3}, schema))
	assert.NoError(t, ValidateParams(map[string]any{"count": 3.0}, schema))
	assert.Error(t, ValidateParams(map[string]any{"count": 3.5}, schema))
	assert.Error(t, ValidateParams(map[string]any{"count": "3"}, schema))
}

func TestValidateParams_ExtraFieldsAllowed(t *testing.T) {
	err := ValidateParams(map[string]any{"order_id": "1001", "note": "vip"}, orderSchema())
	assert.NoError(t, err)
}
