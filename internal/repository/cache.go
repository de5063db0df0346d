package repository

import (
	"context"
	"encoding/json"
	"errors"

	"tender-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedRanking returns the last stored ranking of a tender, if any.
func (r *TenderRepository) CachedRanking(ctx context.Context, tenderID string) (*models.RankingSnapshot, bool) {
	if r.redis == nil {
		return nil, false
	}
	data, err := r.redis.Get(ctx, rankingKeyPrefix+tenderID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("ranking cache read failed", map[string]interface{}{"tenderId": tenderID, "error": err.Error()})
		}
		return nil, false
	}

	var snapshot models.RankingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false
	}
	return &snapshot, true
}

func (r *TenderRepository) StoreRanking(ctx context.Context, snapshot models.RankingSnapshot) error {
	if r.redis == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, rankingKeyPrefix+snapshot.TenderID, data, r.config.RankingTTL).Err()
}

// InvalidateRanking drops the cached ranking after any change that can move
// a bid's total or eligibility.
func (r *TenderRepository) InvalidateRanking(ctx context.Context, tenderID string) {
	if r.redis == nil || tenderID == "" {
		return
	}
	if err := r.redis.Del(ctx, rankingKeyPrefix+tenderID).Err(); err != nil {
		r.logger.Warn("ranking cache invalidation failed", map[string]interface{}{"tenderId": tenderID, "error": err.Error()})
	}
}
