package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tender-workers/internal/models"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// QueryFunc returns data and its row count.
type QueryFunc func(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, error)

var Registry = map[models.QueryType]QueryFunc{
	models.QueryTypeTenderCriteria: TenderCriteria,
	models.QueryTypeTenderBids:     TenderBids,
	models.QueryTypeBidDetails:     BidDetails,
	models.QueryTypeBidAuditTrail:  BidAuditTrail,
}

// Execute runs a registered query and reports its execution time in
// milliseconds.
func Execute(ctx context.Context, db *sql.DB, queryType models.QueryType, params map[string]interface{}) (interface{}, int, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	start := time.Now()
	data, rowCount, err := fn(ctx, db, params)
	return data, rowCount, time.Since(start).Milliseconds(), err
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, name)
	}
	return v, nil
}

func intParam(params map[string]interface{}, name string, fallback int) int {
	switch v := params[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
