package calculatebidscores

import (
	"time"

	"tender-workers/internal/models"
	"tender-workers/internal/scoring"
)

// Input either names a stored tender or carries the criteria and bids inline.
type Input struct {
	TenderID string                       `json:"tenderId,omitempty"`
	Criteria []models.EvaluationCriterion `json:"criteria,omitempty"`
	Bids     []models.Bid                 `json:"bids,omitempty"`
}

type Output struct {
	TenderID string     `json:"tenderId,omitempty"`
	Scores   []BidScore `json:"scores"`
	ScoredAt time.Time  `json:"scoredAt"`
}

type BidScore struct {
	BidID        string                   `json:"bidId"`
	ContractorID string                   `json:"contractorId"`
	TotalScore   int                      `json:"totalScore"`
	Breakdown    []scoring.CriterionScore `json:"breakdown"`
}
