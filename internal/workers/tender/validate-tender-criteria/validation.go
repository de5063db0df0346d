package validatetendercriteria

import "tender-workers/internal/common/validation"

// GetInputSchema only checks shapes. Weight and type rules are reported as
// issues so that every problem comes back at once.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"tenderId": {Type: "string", MinLength: validation.Ptr(1)},
			"criteria": {
				Type: "array",
				Items: &validation.Property{
					Type: "object",
					Properties: map[string]validation.Property{
						"id":     {Type: "string"},
						"name":   {Type: "string"},
						"weight": {Type: "number"},
						"type":   {Type: "string"},
					},
				},
			},
			"normalize": {Type: "boolean"},
		},
		AdditionalProperties: true,
	}
}
