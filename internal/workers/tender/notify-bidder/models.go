package notifybidder

type Input struct {
	BidID            string                 `json:"bidId"`
	ContractorID     string                 `json:"contractorId"`
	NotificationType string                 `json:"notificationType"`
	TenderID         string                 `json:"tenderId,omitempty"`
	TenderTitle      string                 `json:"tenderTitle,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"` // RFC 3339
}

const (
	TypeBidAwarded     = "bid_awarded"
	TypeBidRejected    = "bid_rejected"
	TypeBidShortlisted = "bid_shortlisted"
)

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
