package querytenderdata

import (
	"tender-workers/internal/common/validation"
	"tender-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"queryType"},
		Properties: map[string]validation.Property{
			// unknown query types surface as INVALID_QUERY_TYPE
			"queryType": {Type: "string", MinLength: validation.Ptr(1)},
			"tenderId":  {Type: "string"},
			"bidId":     {Type: "string"},
			"status": {
				Type: "string",
				Enum: []string{
					string(models.BidStatusSubmitted), string(models.BidStatusUnderReview),
					string(models.BidStatusShortlisted), string(models.BidStatusRejected),
					string(models.BidStatusAwarded),
				},
			},
			"limit": {Type: "integer", Minimum: validation.Ptr(1.0), Maximum: validation.Ptr(500.0)},
		},
		AdditionalProperties: true,
	}
}
