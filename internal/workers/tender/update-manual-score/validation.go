package updatemanualscore

import "tender-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"bidId", "criterionId", "score", "evaluatorId"},
		Properties: map[string]validation.Property{
			"tenderId": {
				Type:      "string",
				MinLength: validation.Ptr(1),
			},
			"bidId": {
				Type:        "string",
				Description: "Bid being evaluated",
				MinLength:   validation.Ptr(1),
			},
			"criterionId": {
				Type:        "string",
				Description: "Criterion the score applies to",
				MinLength:   validation.Ptr(1),
			},
			"score": {
				Type:        "number",
				Description: "Evaluator score; clamped to 0-100 unless clamping is disabled",
			},
			"evaluatorId": {
				Type:      "string",
				MinLength: validation.Ptr(1),
			},
			"notes": {
				Type:      "string",
				MaxLength: validation.Ptr(4000),
			},
			"expectedUpdatedAt": {
				Type:   "string",
				Format: "date-time",
			},
		},
		AdditionalProperties: true,
	}
}
