package updatemanualscore

import "time"

type Input struct {
	TenderID          string     `json:"tenderId,omitempty"`
	BidID             string     `json:"bidId"`
	CriterionID       string     `json:"criterionId"`
	Score             *float64   `json:"score"`
	EvaluatorID       string     `json:"evaluatorId"`
	Notes             string     `json:"notes,omitempty"`
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

type Output struct {
	BidID          string             `json:"bidId"`
	TenderID       string             `json:"tenderId"`
	CriterionID    string             `json:"criterionId"`
	AppliedScore   float64            `json:"appliedScore"`
	Clamped        bool               `json:"clamped"`
	TotalScore     int                `json:"totalScore"`
	CriteriaScores map[string]float64 `json:"criteriaScores"`
	EvaluatedAt    time.Time          `json:"evaluatedAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}
