package updatemanualscore

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"testing"
	"time"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/common/metrics"
	"tender-workers/internal/models"
	"tender-workers/internal/repository"
	"tender-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	evaluatedAt = time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	savedAt     = time.Date(2026, 3, 3, 14, 0, 1, 0, time.UTC)
)

func ptr(v float64) *float64 { return &v }

type fakeStore struct {
	bids     map[string]models.Bid
	criteria map[string][]models.EvaluationCriterion
	saveErr  error
	saved    []models.Bid
	expected []*time.Time
	audits   []models.AuditEntry
}

func (f *fakeStore) Bid(_ context.Context, bidID string) (*models.Bid, error) {
	b, ok := f.bids[bidID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrBidNotFound, bidID)
	}
	return &b, nil
}

func (f *fakeStore) Bids(_ context.Context, tenderID string) ([]models.Bid, error) {
	var out []models.Bid
	for _, id := range []string{"bid-1", "bid-2", "bid-3"} {
		if b, ok := f.bids[id]; ok && b.TenderID == tenderID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) Criteria(_ context.Context, tenderID string) ([]models.EvaluationCriterion, error) {
	c, ok := f.criteria[tenderID]
	if !ok {
		return nil, repository.ErrTenderNotFound
	}
	return c, nil
}

func (f *fakeStore) SaveEvaluation(_ context.Context, bid models.Bid, expectedUpdatedAt *time.Time) (time.Time, error) {
	if f.saveErr != nil {
		return time.Time{}, f.saveErr
	}
	f.saved = append(f.saved, bid)
	f.expected = append(f.expected, expectedUpdatedAt)
	return savedAt, nil
}

func (f *fakeStore) RecordAudit(_ context.Context, entry models.AuditEntry) {
	f.audits = append(f.audits, entry)
}

func seededStore() *fakeStore {
	return &fakeStore{
		criteria: map[string][]models.EvaluationCriterion{
			"tender-1": {
				{ID: "price", Weight: 60, Type: models.CriterionPrice},
				{ID: "quality", Weight: 40, Type: models.CriterionQuality},
			},
		},
		bids: map[string]models.Bid{
			"bid-1": {ID: "bid-1", TenderID: "tender-1", TotalPrice: 100, Status: models.BidStatusSubmitted},
			"bid-2": {ID: "bid-2", TenderID: "tender-1", TotalPrice: 200, Status: models.BidStatusUnderReview},
			"bid-3": {ID: "bid-3", TenderID: "tender-1", TotalPrice: 150, Status: models.BidStatusAwarded},
		},
	}
}

func createTestHandler(t *testing.T, store EvaluationStore, opts ...scoring.Option) *Handler {
	t.Helper()
	opts = append([]scoring.Option{scoring.WithClock(func() time.Time { return evaluatedAt })}, opts...)
	return NewHandler(&Config{Timeout: 5 * time.Second}, store, scoring.New(opts...), logger.NewTestLogger(t))
}

// ============================================================================
// EXECUTE
// ============================================================================

func TestHandler_Execute(t *testing.T) {
	expectedAt := time.Date(2026, 3, 3, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		input          *Input
		setupStore     func(*fakeStore)
		expectedCode   apperrors.ErrorCode
		validateOutput func(*testing.T, *Output, *fakeStore)
	}{
		{
			name:  "score recorded and total recomputed",
			input: &Input{BidID: "bid-2", CriterionID: "quality", Score: ptr(90.0), EvaluatorID: "eval-1"},
			validateOutput: func(t *testing.T, out *Output, store *fakeStore) {
				// price 50 * 0.6 + quality 90 * 0.4
				assert.Equal(t, 66, out.TotalScore)
				assert.Equal(t, 90.0, out.AppliedScore)
				assert.False(t, out.Clamped)
				assert.Equal(t, "tender-1", out.TenderID)
				assert.Equal(t, evaluatedAt, out.EvaluatedAt)
				assert.Equal(t, savedAt, out.UpdatedAt)

				require.Len(t, store.saved, 1)
				assert.Equal(t, "eval-1", store.saved[0].Evaluation.EvaluatorID)
				assert.Nil(t, store.expected[0])
				require.Len(t, store.audits, 1)
				assert.Equal(t, models.AuditManualScoreUpdated, store.audits[0].EventType)
				assert.Equal(t, "eval-1", store.audits[0].ActorID)
			},
		},
		{
			name:  "existing scores and notes are kept",
			input: &Input{BidID: "bid-2", CriterionID: "quality", Score: ptr(90.0), EvaluatorID: "eval-2"},
			setupStore: func(s *fakeStore) {
				b := s.bids["bid-2"]
				b.Evaluation = &models.Evaluation{
					CriteriaScores: map[string]float64{"price": 80},
					Notes:          "site visit done",
				}
				s.bids["bid-2"] = b
			},
			validateOutput: func(t *testing.T, out *Output, store *fakeStore) {
				assert.Equal(t, 84, out.TotalScore)
				assert.Equal(t, map[string]float64{"price": 80, "quality": 90}, out.CriteriaScores)
				assert.Equal(t, "site visit done", store.saved[0].Evaluation.Notes)
			},
		},
		{
			name:  "score above range is clamped",
			input: &Input{BidID: "bid-2", CriterionID: "quality", Score: ptr(120.0), EvaluatorID: "eval-1"},
			validateOutput: func(t *testing.T, out *Output, _ *fakeStore) {
				assert.Equal(t, 100.0, out.AppliedScore)
				assert.True(t, out.Clamped)
				assert.Equal(t, 70, out.TotalScore)
			},
		},
		{
			name: "expected updatedAt forwarded to store",
			input: &Input{
				BidID: "bid-1", CriterionID: "price", Score: ptr(70.0),
				EvaluatorID: "eval-1", Notes: "negotiated", ExpectedUpdatedAt: &expectedAt,
			},
			validateOutput: func(t *testing.T, out *Output, store *fakeStore) {
				require.NotNil(t, store.expected[0])
				assert.Equal(t, expectedAt, *store.expected[0])
				assert.Equal(t, "negotiated", store.saved[0].Evaluation.Notes)
				// 70 * 0.6 + 75 * 0.4
				assert.Equal(t, 72, out.TotalScore)
			},
		},
		{
			name:         "missing score",
			input:        &Input{BidID: "bid-2", CriterionID: "quality", EvaluatorID: "eval-1"},
			expectedCode: "INVALID_SCORE",
		},
		{
			name:         "NaN score",
			input:        &Input{BidID: "bid-2", CriterionID: "quality", Score: ptr(math.NaN()), EvaluatorID: "eval-1"},
			expectedCode: "INVALID_SCORE",
		},
		{
			name:         "unknown bid",
			input:        &Input{BidID: "bid-9", CriterionID: "quality", Score: ptr(50.0), EvaluatorID: "eval-1"},
			expectedCode: "BID_NOT_FOUND",
		},
		{
			name:         "bid of another tender",
			input:        &Input{TenderID: "tender-2", BidID: "bid-2", CriterionID: "quality", Score: ptr(50.0), EvaluatorID: "eval-1"},
			expectedCode: "BID_NOT_FOUND",
		},
		{
			name:         "decided bid",
			input:        &Input{BidID: "bid-3", CriterionID: "quality", Score: ptr(50.0), EvaluatorID: "eval-1"},
			expectedCode: "BID_FINALIZED",
		},
		{
			name:         "unknown criterion",
			input:        &Input{BidID: "bid-2", CriterionID: "safety", Score: ptr(50.0), EvaluatorID: "eval-1"},
			expectedCode: "CRITERION_NOT_FOUND",
		},
		{
			name:  "stale write",
			input: &Input{BidID: "bid-2", CriterionID: "quality", Score: ptr(50.0), EvaluatorID: "eval-1"},
			setupStore: func(s *fakeStore) {
				s.saveErr = fmt.Errorf("%w: bid bid-2 changed since it was read", repository.ErrConcurrentModification)
			},
			expectedCode: "CONCURRENT_MODIFICATION",
		},
		{
			name:  "bid decided between read and write",
			input: &Input{BidID: "bid-2", CriterionID: "quality", Score: ptr(50.0), EvaluatorID: "eval-1"},
			setupStore: func(s *fakeStore) {
				s.saveErr = fmt.Errorf("%w: bid bid-2 is rejected", repository.ErrBidFinalized)
			},
			expectedCode: "BID_FINALIZED",
		},
		{
			name:  "database write failure",
			input: &Input{BidID: "bid-2", CriterionID: "quality", Score: ptr(50.0), EvaluatorID: "eval-1"},
			setupStore: func(s *fakeStore) {
				s.saveErr = fmt.Errorf("%w: %w", repository.ErrUpdateFailed, stderrors.New("disk full"))
			},
			expectedCode: "DATABASE_UPDATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			if tt.setupStore != nil {
				tt.setupStore(store)
			}
			h := createTestHandler(t, store)

			out, err := h.Execute(context.Background(), tt.input)

			if tt.expectedCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, apperrors.Classify(err, sentinels...).Code)
				assert.Empty(t, store.saved)
				assert.Empty(t, store.audits)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, out, store)
		})
	}
}

func TestHandler_Execute_ClampingDisabled(t *testing.T) {
	store := seededStore()
	h := createTestHandler(t, store, scoring.WithManualScoreClamping(false))

	out, err := h.Execute(context.Background(), &Input{
		BidID: "bid-2", CriterionID: "quality", Score: ptr(150.0), EvaluatorID: "eval-1",
	})

	require.NoError(t, err)
	assert.Equal(t, 150.0, out.AppliedScore)
	assert.False(t, out.Clamped)
	assert.Equal(t, 90, out.TotalScore)
}

func TestHandler_Execute_CountsUpdates(t *testing.T) {
	counter := metrics.ManualScoreUpdates.WithLabelValues("price", "true")
	before := testutil.ToFloat64(counter)

	h := createTestHandler(t, seededStore())
	_, err := h.Execute(context.Background(), &Input{
		BidID: "bid-1", CriterionID: "price", Score: ptr(-10.0), EvaluatorID: "eval-1",
	})

	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

// ============================================================================
// INPUT PARSING
// ============================================================================

func TestHandler_ParseInput(t *testing.T) {
	tests := []struct {
		name        string
		variables   string
		requireCAS  bool
		expectError bool
	}{
		{
			name:      "complete input",
			variables: `{"bidId":"bid-1","criterionId":"quality","score":80,"evaluatorId":"eval-1","expectedUpdatedAt":"2026-03-03T13:00:00Z"}`,
		},
		{
			name:        "missing evaluator",
			variables:   `{"bidId":"bid-1","criterionId":"quality","score":80}`,
			expectError: true,
		},
		{
			name:        "score as string",
			variables:   `{"bidId":"bid-1","criterionId":"quality","score":"80","evaluatorId":"eval-1"}`,
			expectError: true,
		},
		{
			name:        "expected updatedAt required but absent",
			variables:   `{"bidId":"bid-1","criterionId":"quality","score":80,"evaluatorId":"eval-1"}`,
			requireCAS:  true,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, seededStore())
			h.config.RequireExpectedUpdatedAt = tt.requireCAS
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Variables: tt.variables}}

			input, err := h.parseInput(job)

			if tt.expectError {
				var stdErr *apperrors.StandardError
				require.ErrorAs(t, err, &stdErr)
				assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 80.0, *input.Score)
			require.NotNil(t, input.ExpectedUpdatedAt)
		})
	}
}
