package queries

import (
	"context"
	"database/sql"
)

func TenderCriteria(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, error) {
	tenderID, err := stringParam(params, "tenderId")
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, weight, type, COALESCE(description, ''), position
		FROM evaluation_criteria
		WHERE tender_id = $1
		ORDER BY position, id`, tenderID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := []map[string]interface{}{}
	for rows.Next() {
		var (
			id, name, criterionType, description string
			weight                               float64
			position                             int
		)
		if err := rows.Scan(&id, &name, &weight, &criterionType, &description, &position); err != nil {
			return nil, 0, err
		}
		results = append(results, map[string]interface{}{
			"id":          id,
			"name":        name,
			"weight":      weight,
			"type":        criterionType,
			"description": description,
			"position":    position,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return results, len(results), nil
}

// TenderBids lists bid summaries of a tender, best stored score first. An
// optional status param filters by bid status.
func TenderBids(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, error) {
	tenderID, err := stringParam(params, "tenderId")
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, contractor_id, total_price, proposed_timeline, status, total_score, submitted_at
		FROM bids
		WHERE tender_id = $1`
	args := []interface{}{tenderID}
	if status, ok := params["status"].(string); ok && status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += `
		ORDER BY total_score DESC NULLS LAST, submitted_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := []map[string]interface{}{}
	for rows.Next() {
		var (
			id, contractorID, status string
			price, timeline          sql.NullFloat64
			totalScore               sql.NullInt64
			submittedAt              sql.NullTime
		)
		if err := rows.Scan(&id, &contractorID, &price, &timeline, &status, &totalScore, &submittedAt); err != nil {
			return nil, 0, err
		}
		row := map[string]interface{}{
			"id":               id,
			"contractorId":     contractorID,
			"totalPrice":       price.Float64,
			"proposedTimeline": timeline.Float64,
			"status":           status,
			"totalScore":       nil,
			"submittedAt":      nil,
		}
		if totalScore.Valid {
			row["totalScore"] = totalScore.Int64
		}
		if submittedAt.Valid {
			row["submittedAt"] = submittedAt.Time
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return results, len(results), nil
}
