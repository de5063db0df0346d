package calculatebidscores

import "tender-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"tenderId": {
				Type:        "string",
				Description: "Stored tender to score",
				MinLength:   validation.Ptr(1),
			},
			"criteria": {
				Type:        "array",
				Description: "Inline evaluation criteria",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"id", "weight", "type"},
					Properties: map[string]validation.Property{
						"id":     {Type: "string"},
						"weight": {Type: "number"},
						"type":   {Type: "string"},
					},
				},
			},
			"bids": {
				Type:        "array",
				Description: "Inline bids",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"id"},
					Properties: map[string]validation.Property{
						"id":               {Type: "string"},
						"totalPrice":       {Type: "number"},
						"proposedTimeline": {Type: "number"},
					},
				},
			},
		},
		// process variables other than ours are passed through
		AdditionalProperties: true,
	}
}
