package repository

import (
	"context"
	"encoding/json"

	"tender-workers/internal/models"

	"github.com/google/uuid"
)

// RecordAudit appends to the audit log. Failures are logged and swallowed:
// the evaluation itself has already been stored.
func (r *TenderRepository) RecordAudit(ctx context.Context, entry models.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.timestamp()
	}
	details, _ := json.Marshal(entry.Details)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, event_type, resource_type, resource_id, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.EventType, entry.ResourceType, entry.ResourceID,
		nullString(entry.ActorID), details, entry.CreatedAt,
	)
	if err != nil {
		r.logger.Warn("failed to write audit log", map[string]interface{}{
			"eventType":  entry.EventType,
			"resourceId": entry.ResourceID,
			"error":      err.Error(),
		})
	}
}

// RecordNotification keeps a delivery record per notification. Like the
// audit log it never fails the caller.
func (r *TenderRepository) RecordNotification(ctx context.Context, n models.Notification) {
	payload, _ := json.Marshal(n.Payload)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, contractor_id, bid_id, type, channel, status, payload, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.ContractorID, nullString(n.BidID), n.Type, n.Channel, n.Status, payload, n.SentAt,
	)
	if err != nil {
		r.logger.Warn("failed to record notification", map[string]interface{}{
			"notificationId": n.ID,
			"error":          err.Error(),
		})
	}
}
