package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreSchema() JSONSchema {
	return JSONSchema{
		Type:     "object",
		Required: []string{"bidId", "score"},
		Properties: map[string]Property{
			"bidId":  {Type: "string", MinLength: Ptr(1)},
			"score":  {Type: "number"},
			"status": {Type: "string", Enum: []string{"submitted", "awarded"}},
			"criteria": {
				Type: "array",
				Items: &Property{
					Type:     "object",
					Required: []string{"id"},
					Properties: map[string]Property{
						"id":     {Type: "string"},
						"weight": {Type: "number", Minimum: Ptr(0.0)},
					},
				},
			},
		},
		AdditionalProperties: false,
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name           string
		input          map[string]interface{}
		validateOutput func(t *testing.T, result *ValidationResult)
	}{
		{
			name:  "valid input",
			input: map[string]interface{}{"bidId": "bid-1", "score": 80.0},
			validateOutput: func(t *testing.T, result *ValidationResult) {
				assert.True(t, result.Valid)
				assert.Empty(t, result.Errors)
			},
		},
		{
			name:  "missing required field",
			input: map[string]interface{}{"bidId": "bid-1"},
			validateOutput: func(t *testing.T, result *ValidationResult) {
				require.False(t, result.Valid)
				require.Len(t, result.Errors, 1)
				assert.Equal(t, "score", result.Errors[0].Field)
				assert.Equal(t, "REQUIRED_FIELD_MISSING", result.Errors[0].Code)
			},
		},
		{
			name:  "extra field",
			input: map[string]interface{}{"bidId": "bid-1", "score": 1.0, "unexpected": true},
			validateOutput: func(t *testing.T, result *ValidationResult) {
				require.False(t, result.Valid)
				assert.Equal(t, "EXTRA_FIELD", result.Errors[0].Code)
				assert.Equal(t, "unexpected", result.Errors[0].Field)
			},
		},
		{
			name:  "wrong type",
			input: map[string]interface{}{"bidId": "bid-1", "score": "high"},
			validateOutput: func(t *testing.T, result *ValidationResult) {
				require.False(t, result.Valid)
				assert.Equal(t, "INVALID_TYPE", result.Errors[0].Code)
				assert.Equal(t, "score", result.Errors[0].Field)
			},
		},
		{
			name:  "enum",
			input: map[string]interface{}{"bidId": "bid-1", "score": 1.0, "status": "lost"},
			validateOutput: func(t *testing.T, result *ValidationResult) {
				require.False(t, result.Valid)
				assert.Equal(t, "INVALID_ENUM_VALUE", result.Errors[0].Code)
			},
		},
		{
			name: "nested array item",
			input: map[string]interface{}{
				"bidId": "bid-1",
				"score": 1.0,
				"criteria": []interface{}{
					map[string]interface{}{"id": "c1", "weight": -5.0},
				},
			},
			validateOutput: func(t *testing.T, result *ValidationResult) {
				require.False(t, result.Valid)
				assert.Equal(t, "criteria.0.weight", result.Errors[0].Field)
				assert.Equal(t, "OUT_OF_RANGE", result.Errors[0].Code)
			},
		},
		{
			name:  "nil input",
			input: nil,
			validateOutput: func(t *testing.T, result *ValidationResult) {
				assert.False(t, result.Valid)
				assert.Len(t, result.GetErrorMessages(), 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validateOutput(t, ValidateInput(tt.input, scoreSchema()))
		})
	}
}
