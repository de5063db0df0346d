package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tender-workers/internal/models"
)

const bidColumns = `id, tender_id, contractor_id, total_price, proposed_timeline,
		       status, evaluation, submitted_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBid(row rowScanner) (models.Bid, error) {
	var (
		b               models.Bid
		price, timeline sql.NullFloat64
		status          string
		evaluation      []byte
		submittedAt     sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.TenderID, &b.ContractorID, &price, &timeline,
		&status, &evaluation, &submittedAt, &b.UpdatedAt); err != nil {
		return b, err
	}
	b.TotalPrice = price.Float64
	b.ProposedTimeline = timeline.Float64
	b.Status = models.BidStatus(status)
	b.SubmittedAt = submittedAt.Time
	if len(evaluation) > 0 {
		var ev models.Evaluation
		if err := json.Unmarshal(evaluation, &ev); err != nil {
			return b, fmt.Errorf("decode evaluation of bid %s: %w", b.ID, err)
		}
		b.Evaluation = &ev
	}
	return b, nil
}

// Bids returns every bid of a tender in submission order.
func (r *TenderRepository) Bids(ctx context.Context, tenderID string) ([]models.Bid, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE tender_id = $1
		ORDER BY submitted_at NULLS LAST, id`, tenderID)
	if err != nil {
		return nil, fmt.Errorf("%w: load bids for %s: %w", ErrQueryFailed, tenderID, err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate bids: %w", ErrQueryFailed, err)
	}
	return bids, nil
}

func (r *TenderRepository) Bid(ctx context.Context, bidID string) (*models.Bid, error) {
	b, err := scanBid(r.db.QueryRowContext(ctx, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE id = $1`, bidID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBidNotFound, bidID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load bid %s: %w", ErrQueryFailed, bidID, err)
	}
	return &b, nil
}

// SaveEvaluation stores the bid's evaluation and returns the new updated_at.
// Decided bids are never written. When expectedUpdatedAt is set the write
// only succeeds if nobody else has touched the bid since it was read.
func (r *TenderRepository) SaveEvaluation(ctx context.Context, bid models.Bid, expectedUpdatedAt *time.Time) (time.Time, error) {
	if bid.Evaluation == nil {
		return time.Time{}, fmt.Errorf("%w: bid %s has no evaluation", ErrUpdateFailed, bid.ID)
	}
	data, err := json.Marshal(bid.Evaluation)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: encode evaluation: %w", ErrUpdateFailed, err)
	}

	updatedAt := r.timestamp()
	query := `
		UPDATE bids
		SET evaluation = $2, total_score = $3, evaluated_at = $4, evaluator_id = $5, updated_at = $6
		WHERE id = $1 AND status NOT IN ('rejected', 'awarded')`
	args := []interface{}{
		bid.ID, data, bid.Evaluation.TotalScore, bid.Evaluation.EvaluatedAt,
		nullString(bid.Evaluation.EvaluatorID), updatedAt,
	}
	if expectedUpdatedAt != nil {
		query += ` AND updated_at = $7`
		args = append(args, expectedUpdatedAt.UTC())
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: save evaluation of %s: %w", ErrUpdateFailed, bid.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		}
		return time.Time{}, r.explainMissedWrite(ctx, bid.ID)
	}

	r.InvalidateRanking(ctx, bid.TenderID)
	return updatedAt, nil
}

// explainMissedWrite tells apart the reasons a guarded UPDATE touched no row.
func (r *TenderRepository) explainMissedWrite(ctx context.Context, bidID string) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM bids WHERE id = $1`, bidID).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", ErrBidNotFound, bidID)
	case err != nil:
		return fmt.Errorf("%w: recheck bid %s: %w", ErrQueryFailed, bidID, err)
	case models.BidStatus(status).IsTerminal():
		return fmt.Errorf("%w: bid %s is %s", ErrBidFinalized, bidID, status)
	default:
		return fmt.Errorf("%w: bid %s changed since it was read", ErrConcurrentModification, bidID)
	}
}

// StatusChange describes an applied status transition.
type StatusChange struct {
	BidID          string
	TenderID       string
	PreviousStatus models.BidStatus
	Status         models.BidStatus
	UpdatedAt      time.Time
	// RejectedBidIDs lists the bids of the tender rejected alongside an award.
	RejectedBidIDs []string
}

// UpdateStatus moves a bid to status. Any open bid may move to any status;
// a decided bid keeps its status, and asking for the status it already has
// leaves the bid as it is.
//
// With rejectRemaining set, awarding a bid rejects every other open bid of
// the tender in the same transaction. Repeating an award repeats the sweep,
// so a retried award still rejects bids that are open.
func (r *TenderRepository) UpdateStatus(ctx context.Context, bidID string, status models.BidStatus, rejectRemaining bool) (*StatusChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrUpdateFailed, err)
	}
	defer tx.Rollback()

	var (
		change   StatusChange
		previous string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT tender_id, status, updated_at
		FROM bids
		WHERE id = $1
		FOR UPDATE`, bidID).Scan(&change.TenderID, &previous, &change.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBidNotFound, bidID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock bid %s: %w", ErrQueryFailed, bidID, err)
	}

	change.BidID = bidID
	change.PreviousStatus = models.BidStatus(previous)
	change.Status = status
	change.RejectedBidIDs = []string{}
	sweep := rejectRemaining && status == models.BidStatusAwarded

	if change.PreviousStatus == status && !sweep {
		return &change, nil
	}
	if change.PreviousStatus != status {
		if change.PreviousStatus.IsTerminal() {
			return nil, fmt.Errorf("%w: bid %s is %s", ErrBidFinalized, bidID, previous)
		}
		change.UpdatedAt = r.timestamp()
		if _, err := tx.ExecContext(ctx, `
			UPDATE bids SET status = $2, updated_at = $3 WHERE id = $1`,
			bidID, string(status), change.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: update status of %s: %w", ErrUpdateFailed, bidID, err)
		}
	}
	if sweep {
		if change.RejectedBidIDs, err = r.rejectRemaining(ctx, tx, change.TenderID, bidID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrUpdateFailed, err)
	}

	if change.PreviousStatus != status || len(change.RejectedBidIDs) > 0 {
		r.InvalidateRanking(ctx, change.TenderID)
	}
	return &change, nil
}

// rejectRemaining rejects every open bid of the tender except exceptBidID
// and returns the ids it rejected.
func (r *TenderRepository) rejectRemaining(ctx context.Context, tx *sql.Tx, tenderID, exceptBidID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		UPDATE bids
		SET status = 'rejected', updated_at = $3
		WHERE tender_id = $1 AND id <> $2 AND status NOT IN ('rejected', 'awarded')
		RETURNING id`, tenderID, exceptBidID, r.timestamp())
	if err != nil {
		return nil, fmt.Errorf("%w: reject remaining bids of %s: %w", ErrUpdateFailed, tenderID, err)
	}
	defer rows.Close()

	rejected := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
		}
		rejected = append(rejected, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	return rejected, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
