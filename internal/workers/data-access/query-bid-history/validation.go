package querybidhistory

import "tender-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"contractorId"},
		Properties: map[string]validation.Property{
			"contractorId": {Type: "string", MinLength: validation.Ptr(1)},
			"size":         {Type: "integer", Minimum: validation.Ptr(1.0)},
		},
		AdditionalProperties: true,
	}
}
