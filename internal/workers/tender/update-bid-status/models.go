package updatebidstatus

import (
	"time"

	"tender-workers/internal/models"
)

type Input struct {
	BidID           string           `json:"bidId"`
	Status          models.BidStatus `json:"status"`
	EvaluatorID     string           `json:"evaluatorId,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	RejectRemaining *bool            `json:"rejectRemaining,omitempty"`
}

type Output struct {
	BidID          string           `json:"bidId"`
	TenderID       string           `json:"tenderId"`
	PreviousStatus models.BidStatus `json:"previousStatus"`
	Status         models.BidStatus `json:"status"`
	Changed        bool             `json:"changed"`
	RejectedBidIDs []string         `json:"rejectedBidIds"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}
