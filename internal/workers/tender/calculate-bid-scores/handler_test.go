package calculatebidscores

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/models"
	"tender-workers/internal/repository"
	"tender-workers/internal/scoring"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scoredAt = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func createTestEngine() *scoring.Engine {
	return scoring.New(scoring.WithClock(func() time.Time { return scoredAt }))
}

func createTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewTestLogger(t)
	repo := repository.New(db, nil, repository.Config{}, log)
	return NewHandler(createTestConfig(), repo, createTestEngine(), log), mock
}

func priceAndQuality() []models.EvaluationCriterion {
	return []models.EvaluationCriterion{
		{ID: "price", Name: "Price", Weight: 50, Type: models.CriterionPrice},
		{ID: "quality", Name: "Quality", Weight: 50, Type: models.CriterionQuality},
	}
}

// ============================================================================
// EXECUTE
// ============================================================================

func TestHandler_Execute(t *testing.T) {
	criteriaColumns := []string{"id", "name", "weight", "type", "description"}
	bidColumns := []string{
		"id", "tender_id", "contractor_id", "total_price", "proposed_timeline",
		"status", "evaluation", "submitted_at", "updated_at",
	}

	tests := []struct {
		name           string
		input          *Input
		mockQuery      func(mock sqlmock.Sqlmock)
		wantErr        error
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name: "inline criteria and bids",
			input: &Input{
				Criteria: priceAndQuality(),
				Bids: []models.Bid{
					{ID: "a", ContractorID: "k1", TotalPrice: 100},
					{ID: "b", ContractorID: "k2", TotalPrice: 200},
				},
			},
			validateOutput: func(t *testing.T, output *Output) {
				require.Len(t, output.Scores, 2)
				assert.Equal(t, 88, output.Scores[0].TotalScore)
				assert.Equal(t, 63, output.Scores[1].TotalScore)
				assert.Equal(t, scoredAt, output.ScoredAt)

				breakdown := output.Scores[1].Breakdown
				require.Len(t, breakdown, 2)
				assert.Equal(t, 50.0, breakdown[0].AutomaticScore)
				assert.Equal(t, scoring.SourceAutomatic, breakdown[1].Source)
				assert.Equal(t, 37.5, breakdown[1].WeightedScore)
			},
		},
		{
			name:  "stored tender with a manual score",
			input: &Input{TenderID: "t1"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM evaluation_criteria`).
					WithArgs("t1").
					WillReturnRows(sqlmock.NewRows(criteriaColumns).
						AddRow("price", "Price", 50.0, "price", "").
						AddRow("quality", "Quality", 50.0, "quality", ""))
				mock.ExpectQuery(`FROM bids WHERE tender_id = \$1`).
					WithArgs("t1").
					WillReturnRows(sqlmock.NewRows(bidColumns).
						AddRow("a", "t1", "k1", 100.0, nil, "under_review",
							[]byte(`{"criteriaScores":{"quality":95},"totalScore":0}`), scoredAt, scoredAt).
						AddRow("b", "t1", "k2", 200.0, nil, "submitted", nil, scoredAt, scoredAt))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, "t1", output.TenderID)
				require.Len(t, output.Scores, 2)
				// 100*0.5 + 95*0.5
				assert.Equal(t, 98, output.Scores[0].TotalScore)
				assert.Equal(t, scoring.SourceManual, output.Scores[0].Breakdown[1].Source)
				assert.Equal(t, 63, output.Scores[1].TotalScore)
			},
		},
		{
			name:  "tender without bids",
			input: &Input{TenderID: "t1", Criteria: priceAndQuality()},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM bids`).
					WithArgs("t1").
					WillReturnRows(sqlmock.NewRows(bidColumns))
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.NotNil(t, output.Scores)
				assert.Empty(t, output.Scores)
			},
		},
		{
			name:  "unknown tender",
			input: &Input{TenderID: "missing"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM evaluation_criteria`).
					WillReturnRows(sqlmock.NewRows(criteriaColumns))
				mock.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: ErrTenderNotFound,
		},
		{
			name:  "database failure",
			input: &Input{TenderID: "t1"},
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM evaluation_criteria`).
					WillReturnError(stderrors.New("connection refused"))
			},
			wantErr: ErrDatabaseQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := createTestHandler(t)
			if tt.mockQuery != nil {
				tt.mockQuery(mock)
			}

			output, err := handler.Execute(context.Background(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, output)
			} else {
				require.NoError(t, err)
				tt.validateOutput(t, output)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_ErrorClassification(t *testing.T) {
	handler, mock := createTestHandler(t)
	mock.ExpectQuery(`FROM evaluation_criteria`).WillReturnError(stderrors.New("connection refused"))

	_, err := handler.Execute(context.Background(), &Input{TenderID: "t1"})
	se := apperrors.Classify(err, ErrTenderNotFound, ErrDatabaseQueryFailed)

	assert.Equal(t, apperrors.ErrCodeDatabaseQueryFailed, se.Code)
	assert.True(t, se.Retryable)
}

// ============================================================================
// INPUT PARSING
// ============================================================================

func TestHandler_ParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantErr   bool
	}{
		{name: "stored tender", variables: `{"tenderId":"t1","unrelated":"process variable"}`},
		{name: "inline", variables: `{"criteria":[{"id":"c1","weight":100,"type":"price"}],"bids":[{"id":"b1","totalPrice":10}]}`},
		{name: "nothing to score", variables: `{}`, wantErr: true},
		{name: "criterion without weight", variables: `{"criteria":[{"id":"c1","type":"price"}]}`, wantErr: true},
		{name: "price as text", variables: `{"criteria":[{"id":"c1","weight":100,"type":"price"}],"bids":[{"id":"b1","totalPrice":"cheap"}]}`, wantErr: true},
	}

	handler, _ := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Variables: tt.variables}}
			input, err := handler.parseInput(job)
			if tt.wantErr {
				var se *apperrors.StandardError
				require.True(t, stderrors.As(err, &se))
				assert.Equal(t, apperrors.ErrCodeInvalidInput, se.Code)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, input)
		})
	}
}
