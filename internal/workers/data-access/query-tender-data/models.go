package querytenderdata

type Input struct {
	QueryType string `json:"queryType"`
	TenderID  string `json:"tenderId,omitempty"`
	BidID     string `json:"bidId,omitempty"`
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type Output struct {
	Data            interface{} `json:"data"`
	RowCount        int         `json:"rowCount"`
	ExecutionTimeMs int64       `json:"executionTimeMs"`
}
