package validatetendercriteria

import (
	"tender-workers/internal/models"
	"tender-workers/internal/scoring"
)

type Input struct {
	TenderID  string                       `json:"tenderId,omitempty"`
	Criteria  []models.EvaluationCriterion `json:"criteria,omitempty"`
	Normalize bool                         `json:"normalize,omitempty"`
}

type Output struct {
	Valid       bool                         `json:"valid"`
	WeightTotal float64                      `json:"weightTotal"`
	Normalized  bool                         `json:"normalized"`
	Issues      []scoring.CriteriaIssue      `json:"issues"`
	Criteria    []models.EvaluationCriterion `json:"criteria"`
}
