package rankbids

import (
	"time"

	"tender-workers/internal/models"
)

type Input struct {
	TenderID string                       `json:"tenderId,omitempty"`
	Criteria []models.EvaluationCriterion `json:"criteria,omitempty"`
	Bids     []models.Bid                 `json:"bids,omitempty"`
	Limit    int                          `json:"limit,omitempty"`
	UseCache bool                         `json:"useCache,omitempty"`
}

type Output struct {
	TenderID   string                `json:"tenderId,omitempty"`
	RankedBids []models.RankingEntry `json:"rankedBids"`
	TopBidID   string                `json:"topBidId"`
	TotalBids  int                   `json:"totalBids"`
	RankedAt   time.Time             `json:"rankedAt"`
	FromCache  bool                  `json:"fromCache"`
}
