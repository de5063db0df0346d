package querybidhistory

import "tender-workers/internal/search"

type Input struct {
	ContractorID string `json:"contractorId"`
	Size         int    `json:"size,omitempty"`
}

type Output struct {
	ContractorID string             `json:"contractorId"`
	Placements   []search.Placement `json:"placements"`
	TotalHits    int64              `json:"totalHits"`

	// Wins and AverageScore summarize the returned placements only.
	Wins         int     `json:"wins"`
	AverageScore float64 `json:"averageScore"`
}
