package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const defaultAuditLimit = 50

// BidDetails returns one bid with its evaluation. An unknown bid yields no
// data and a zero row count.
func BidDetails(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, error) {
	bidID, err := stringParam(params, "bidId")
	if err != nil {
		return nil, 0, err
	}

	var (
		id, tenderID, contractorID, status string
		price, timeline                    sql.NullFloat64
		evaluation                         []byte
		submittedAt                        sql.NullTime
		updatedAt                          time.Time
	)
	err = db.QueryRowContext(ctx, `
		SELECT id, tender_id, contractor_id, total_price, proposed_timeline,
		       status, evaluation, submitted_at, updated_at
		FROM bids
		WHERE id = $1`, bidID).Scan(
		&id, &tenderID, &contractorID, &price, &timeline,
		&status, &evaluation, &submittedAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	result := map[string]interface{}{
		"id":               id,
		"tenderId":         tenderID,
		"contractorId":     contractorID,
		"totalPrice":       price.Float64,
		"proposedTimeline": timeline.Float64,
		"status":           status,
		"evaluation":       nil,
		"updatedAt":        updatedAt,
	}
	if submittedAt.Valid {
		result["submittedAt"] = submittedAt.Time
	}
	if len(evaluation) > 0 {
		var ev map[string]interface{}
		if err := json.Unmarshal(evaluation, &ev); err != nil {
			return nil, 0, err
		}
		result["evaluation"] = ev
	}
	return result, 1, nil
}

// BidAuditTrail lists the audit entries of a bid, newest first.
func BidAuditTrail(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, error) {
	bidID, err := stringParam(params, "bidId")
	if err != nil {
		return nil, 0, err
	}
	limit := intParam(params, "limit", defaultAuditLimit)
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, event_type, COALESCE(actor_id, ''), details, created_at
		FROM audit_log
		WHERE resource_type = 'bid' AND resource_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, bidID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := []map[string]interface{}{}
	for rows.Next() {
		var (
			id, eventType, actorID string
			details                []byte
			createdAt              time.Time
		)
		if err := rows.Scan(&id, &eventType, &actorID, &details, &createdAt); err != nil {
			return nil, 0, err
		}
		entry := map[string]interface{}{
			"id":        id,
			"eventType": eventType,
			"actorId":   actorID,
			"createdAt": createdAt,
		}
		var d map[string]interface{}
		if len(details) > 0 && json.Unmarshal(details, &d) == nil {
			entry["details"] = d
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return results, len(results), nil
}
