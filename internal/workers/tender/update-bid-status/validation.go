package updatebidstatus

import "tender-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"bidId", "status"},
		Properties: map[string]validation.Property{
			"bidId": {
				Type:      "string",
				MinLength: validation.Ptr(1),
			},
			// values outside the enum are reported as INVALID_STATUS by the
			// handler rather than as an input error
			"status": {
				Type:        "string",
				Description: "Target bid status",
			},
			"evaluatorId":     {Type: "string"},
			"reason":          {Type: "string", MaxLength: validation.Ptr(2000)},
			"rejectRemaining": {Type: "boolean"},
		},
		AdditionalProperties: true,
	}
}
