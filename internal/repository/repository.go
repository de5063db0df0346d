// Package repository persists tenders, bids and evaluations in PostgreSQL
// and caches criteria and rankings in Redis.
package repository

import (
	"database/sql"
	"errors"
	"time"

	"tender-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// Sentinels carry the BPMN error code they map to.
var (
	ErrTenderNotFound         = errors.New("TENDER_NOT_FOUND")
	ErrBidNotFound            = errors.New("BID_NOT_FOUND")
	ErrBidFinalized           = errors.New("BID_FINALIZED")
	ErrConcurrentModification = errors.New("CONCURRENT_MODIFICATION")
	ErrContractorNotFound     = errors.New("CONTRACTOR_NOT_FOUND")
	ErrQueryFailed            = errors.New("DATABASE_QUERY_FAILED")
	ErrUpdateFailed           = errors.New("DATABASE_UPDATE_FAILED")
)

const (
	criteriaKeyPrefix = "tender:criteria:"
	rankingKeyPrefix  = "tender:ranking:"
)

type Config struct {
	CriteriaTTL time.Duration
	RankingTTL  time.Duration
}

// TenderRepository is safe for concurrent use. A nil redis client disables
// caching.
type TenderRepository struct {
	db     *sql.DB
	redis  *redis.Client
	config Config
	logger logger.Logger
	now    func() time.Time
}

func New(db *sql.DB, rdb *redis.Client, config Config, log logger.Logger) *TenderRepository {
	return &TenderRepository{
		db:     db,
		redis:  rdb,
		config: config,
		logger: log.WithFields(map[string]interface{}{"component": "tender-repository"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// timestamp is truncated to what a timestamptz column stores so that
// compare-and-swap on updated_at round-trips.
func (r *TenderRepository) timestamp() time.Time {
	return r.now().Truncate(time.Microsecond)
}
