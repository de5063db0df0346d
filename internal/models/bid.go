// internal/models/bid.go
package models

import "time"

type BidStatus string

const (
	BidStatusSubmitted   BidStatus = "submitted"
	BidStatusUnderReview BidStatus = "under_review"
	BidStatusShortlisted BidStatus = "shortlisted"
	BidStatusRejected    BidStatus = "rejected"
	BidStatusAwarded     BidStatus = "awarded"
)

func (s BidStatus) Valid() bool {
	switch s {
	case BidStatusSubmitted, BidStatusUnderReview, BidStatusShortlisted, BidStatusRejected, BidStatusAwarded:
		return true
	}
	return false
}

// IsTerminal reports whether the bid has been decided. Decided bids accept
// no further score changes or status transitions.
func (s BidStatus) IsTerminal() bool {
	return s == BidStatusRejected || s == BidStatusAwarded
}

// Bid is a contractor's proposal against a tender. A zero TotalPrice or
// ProposedTimeline means the bidder left the field empty.
type Bid struct {
	ID               string      `json:"id"`
	TenderID         string      `json:"tenderId"`
	ContractorID     string      `json:"contractorId"`
	TotalPrice       float64     `json:"totalPrice"`
	ProposedTimeline float64     `json:"proposedTimeline"` // days
	Status           BidStatus   `json:"status"`
	Evaluation       *Evaluation `json:"evaluation,omitempty"`
	SubmittedAt      time.Time   `json:"submittedAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

type Evaluation struct {
	CriteriaScores map[string]float64 `json:"criteriaScores"`
	TotalScore     int                `json:"totalScore"`
	EvaluatedAt    *time.Time         `json:"evaluatedAt,omitempty"`
	EvaluatorID    string             `json:"evaluatorId,omitempty"`
	Notes          string             `json:"notes,omitempty"`
}

// ManualScore returns the evaluator-entered score for a criterion, if any.
func (b *Bid) ManualScore(criterionID string) (float64, bool) {
	if b.Evaluation == nil || b.Evaluation.CriteriaScores == nil {
		return 0, false
	}
	s, ok := b.Evaluation.CriteriaScores[criterionID]
	return s, ok
}
