package notifybidder

import "tender-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"bidId", "contractorId", "notificationType"},
		Properties: map[string]validation.Property{
			"bidId":        {Type: "string", MinLength: validation.Ptr(1)},
			"contractorId": {Type: "string", MinLength: validation.Ptr(1)},
			"notificationType": {
				Type: "string",
				Enum: []string{TypeBidAwarded, TypeBidRejected, TypeBidShortlisted},
			},
			"tenderId":    {Type: "string"},
			"tenderTitle": {Type: "string"},
			"metadata":    {Type: "object"},
		},
		AdditionalProperties: true,
	}
}
