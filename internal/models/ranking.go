package models

import "time"

// RankingEntry is one bid's placement in a tender ranking.
type RankingEntry struct {
	BidID        string    `json:"bidId"`
	ContractorID string    `json:"contractorId"`
	TotalScore   int       `json:"totalScore"`
	Position     int       `json:"position"`
	TotalPrice   float64   `json:"totalPrice,omitempty"`
	Status       BidStatus `json:"status"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// RankingSnapshot is a ranking as computed at RankedAt. It is cached per
// tender and indexed for contractor history.
type RankingSnapshot struct {
	TenderID string         `json:"tenderId"`
	RankedAt time.Time      `json:"rankedAt"`
	Entries  []RankingEntry `json:"entries"`
}
