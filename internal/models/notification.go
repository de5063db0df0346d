// internal/models/notification.go
package models

type Notification struct {
	ID           string                 `json:"id"`
	ContractorID string                 `json:"contractorId"`
	BidID        string                 `json:"bidId"`
	Type         string                 `json:"type"`    // "bid_awarded", "bid_rejected", "bid_shortlisted"
	Channel      string                 `json:"channel"` // "email", "sms"
	Status       string                 `json:"status"`  // "sent", "failed", "disabled"
	Payload      map[string]interface{} `json:"payload"`
	SentAt       string                 `json:"sentAt"`
}

type NotificationTemplate struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type ContractorContact struct {
	ContractorID string `json:"contractorId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}
