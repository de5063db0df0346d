package rankbids

import "tender-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"tenderId": {
				Type:      "string",
				MinLength: validation.Ptr(1),
			},
			"criteria": {
				Type: "array",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"id", "weight", "type"},
				},
			},
			"bids": {
				Type: "array",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"id"},
				},
			},
			"limit": {
				Type:        "integer",
				Description: "Maximum number of ranked bids returned",
				Minimum:     validation.Ptr(0.0),
			},
			"useCache": {
				Type:        "boolean",
				Description: "Serve a cached ranking of a stored tender when present",
			},
		},
		AdditionalProperties: true,
	}
}
