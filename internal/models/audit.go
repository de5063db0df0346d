// internal/models/audit.go
package models

import "time"

type AuditEntry struct {
	ID           string                 `json:"id"`
	EventType    string                 `json:"eventType"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	ActorID      string                 `json:"actorId,omitempty"`
	Details      map[string]interface{} `json:"details"`
	CreatedAt    time.Time              `json:"createdAt"`
}

const (
	AuditManualScoreUpdated = "manual_score_updated"
	AuditBidStatusChanged   = "bid_status_changed"
	AuditBidsRanked         = "bids_ranked"
)
