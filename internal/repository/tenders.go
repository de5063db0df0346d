package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tender-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// Tender loads the tender header together with its criteria.
func (r *TenderRepository) Tender(ctx context.Context, tenderID string) (*models.Tender, error) {
	var (
		t         models.Tender
		managerID sql.NullString
		deadline  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, manager_id, status, deadline, created_at
		FROM tenders
		WHERE id = $1`, tenderID).Scan(
		&t.ID, &t.Title, &managerID, &t.Status, &deadline, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTenderNotFound, tenderID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load tender %s: %w", ErrQueryFailed, tenderID, err)
	}
	t.ManagerID = managerID.String
	if deadline.Valid {
		t.Deadline = &deadline.Time
	}

	if t.Criteria, err = r.Criteria(ctx, tenderID); err != nil {
		return nil, err
	}
	return &t, nil
}

// Criteria returns the tender's criteria in display order, reading through
// the criteria cache. A tender without criteria yields an empty slice; an
// unknown tender yields ErrTenderNotFound.
func (r *TenderRepository) Criteria(ctx context.Context, tenderID string) ([]models.EvaluationCriterion, error) {
	key := criteriaKeyPrefix + tenderID

	if r.redis != nil {
		cached, err := r.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var criteria []models.EvaluationCriterion
			if jsonErr := json.Unmarshal(cached, &criteria); jsonErr == nil {
				return criteria, nil
			}
			r.logger.Warn("discarding unreadable criteria cache entry", map[string]interface{}{"tenderId": tenderID})
		case !errors.Is(err, redis.Nil):
			r.logger.Warn("criteria cache read failed", map[string]interface{}{"tenderId": tenderID, "error": err.Error()})
		}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, weight, type, COALESCE(description, '')
		FROM evaluation_criteria
		WHERE tender_id = $1
		ORDER BY position, id`, tenderID)
	if err != nil {
		return nil, fmt.Errorf("%w: load criteria for %s: %w", ErrQueryFailed, tenderID, err)
	}
	defer rows.Close()

	criteria := []models.EvaluationCriterion{}
	for rows.Next() {
		var c models.EvaluationCriterion
		var criterionType string
		if err := rows.Scan(&c.ID, &c.Name, &c.Weight, &criterionType, &c.Description); err != nil {
			return nil, fmt.Errorf("%w: scan criterion: %w", ErrQueryFailed, err)
		}
		c.Type = models.CriterionType(criterionType)
		criteria = append(criteria, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate criteria: %w", ErrQueryFailed, err)
	}

	if len(criteria) == 0 {
		exists, err := r.tenderExists(ctx, tenderID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrTenderNotFound, tenderID)
		}
	}

	if r.redis != nil {
		if data, err := json.Marshal(criteria); err == nil {
			if err := r.redis.Set(ctx, key, data, r.config.CriteriaTTL).Err(); err != nil {
				r.logger.Warn("criteria cache write failed", map[string]interface{}{"tenderId": tenderID, "error": err.Error()})
			}
		}
	}
	return criteria, nil
}

func (r *TenderRepository) tenderExists(ctx context.Context, tenderID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tenders WHERE id = $1)`, tenderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check tender %s: %w", ErrQueryFailed, tenderID, err)
	}
	return exists, nil
}

// ContractorContact returns the addresses a bidder is notified on.
func (r *TenderRepository) ContractorContact(ctx context.Context, contractorID string) (*models.ContractorContact, error) {
	var (
		c            models.ContractorContact
		email, phone sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone
		FROM contractors
		WHERE id = $1`, contractorID).Scan(&c.ContractorID, &c.Name, &email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrContractorNotFound, contractorID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load contractor %s: %w", ErrQueryFailed, contractorID, err)
	}
	c.Email = email.String
	c.Phone = phone.String
	return &c, nil
}
