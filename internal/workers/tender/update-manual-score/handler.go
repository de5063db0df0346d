package updatemanualscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/common/metrics"
	"tender-workers/internal/common/validation"
	"tender-workers/internal/models"
	"tender-workers/internal/repository"
	"tender-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-manual-score"
)

var (
	ErrBidNotFound            = errors.New("BID_NOT_FOUND")
	ErrCriterionNotFound      = errors.New("CRITERION_NOT_FOUND")
	ErrBidFinalized           = errors.New("BID_FINALIZED")
	ErrConcurrentModification = errors.New("CONCURRENT_MODIFICATION")
	ErrInvalidScore           = errors.New("INVALID_SCORE")
	ErrDatabaseQueryFailed    = errors.New("DATABASE_QUERY_FAILED")
	ErrDatabaseUpdateFailed   = errors.New("DATABASE_UPDATE_FAILED")
)

var sentinels = []error{
	ErrBidNotFound, ErrCriterionNotFound, ErrBidFinalized, ErrConcurrentModification,
	ErrInvalidScore, ErrDatabaseQueryFailed, ErrDatabaseUpdateFailed,
}

type EvaluationStore interface {
	Bid(ctx context.Context, bidID string) (*models.Bid, error)
	Bids(ctx context.Context, tenderID string) ([]models.Bid, error)
	Criteria(ctx context.Context, tenderID string) ([]models.EvaluationCriterion, error)
	SaveEvaluation(ctx context.Context, bid models.Bid, expectedUpdatedAt *time.Time) (time.Time, error)
	RecordAudit(ctx context.Context, entry models.AuditEntry)
}

type Handler struct {
	config *Config
	store  EvaluationStore
	engine *scoring.Engine
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, store EvaluationStore, engine *scoring.Engine, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		engine: engine,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(jobCtx context.Context, client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		return h.errors.HandleJobError(jobCtx, client, job, err)
	}

	ctx, cancel := context.WithTimeout(jobCtx, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		return h.errors.HandleJobError(jobCtx, client, job, apperrors.Classify(err, sentinels...))
	}

	return h.completeJob(client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse variables: %v", err))
	}
	if result := validation.ValidateInput(variables, GetInputSchema()); !result.Valid {
		return nil, apperrors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	if h.config.RequireExpectedUpdatedAt && input.ExpectedUpdatedAt == nil {
		return nil, apperrors.NewValidationError("expectedUpdatedAt is required")
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	// evaluations are stored as JSON, which has no NaN or Inf
	if input.Score == nil || math.IsNaN(*input.Score) || math.IsInf(*input.Score, 0) {
		return nil, fmt.Errorf("%w: score must be a finite number", ErrInvalidScore)
	}

	bid, err := h.store.Bid(ctx, input.BidID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if input.TenderID != "" && bid.TenderID != input.TenderID {
		return nil, fmt.Errorf("%w: bid %s does not belong to tender %s", ErrBidNotFound, bid.ID, input.TenderID)
	}
	if bid.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: bid %s is %s", ErrBidFinalized, bid.ID, bid.Status)
	}

	criteria, err := h.store.Criteria(ctx, bid.TenderID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	criterion, ok := findCriterion(criteria, input.CriterionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s on tender %s", ErrCriterionNotFound, input.CriterionID, bid.TenderID)
	}

	// price and time scores depend on the other bids of the tender
	allBids, err := h.store.Bids(ctx, bid.TenderID)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	updated := h.engine.UpdateManualScore(*bid, criterion.ID, *input.Score, criteria, allBids)
	updated.Evaluation.EvaluatorID = input.EvaluatorID
	if input.Notes != "" {
		updated.Evaluation.Notes = input.Notes
	}

	updatedAt, err := h.store.SaveEvaluation(ctx, updated, input.ExpectedUpdatedAt)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	applied := updated.Evaluation.CriteriaScores[criterion.ID]
	clamped := applied != *input.Score
	metrics.ManualScoreUpdates.WithLabelValues(string(criterion.Type), strconv.FormatBool(clamped)).Inc()

	h.store.RecordAudit(ctx, models.AuditEntry{
		EventType:    models.AuditManualScoreUpdated,
		ResourceType: "bid",
		ResourceID:   bid.ID,
		ActorID:      input.EvaluatorID,
		Details: map[string]interface{}{
			"tenderId":       bid.TenderID,
			"criterionId":    criterion.ID,
			"requestedScore": *input.Score,
			"appliedScore":   applied,
			"totalScore":     updated.Evaluation.TotalScore,
		},
	})

	h.logger.Info("manual score updated", map[string]interface{}{
		"bidId":       bid.ID,
		"criterionId": criterion.ID,
		"totalScore":  updated.Evaluation.TotalScore,
		"clamped":     clamped,
	})

	return &Output{
		BidID:          bid.ID,
		TenderID:       bid.TenderID,
		CriterionID:    criterion.ID,
		AppliedScore:   applied,
		Clamped:        clamped,
		TotalScore:     updated.Evaluation.TotalScore,
		CriteriaScores: updated.Evaluation.CriteriaScores,
		EvaluatedAt:    *updated.Evaluation.EvaluatedAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func findCriterion(criteria []models.EvaluationCriterion, id string) (models.EvaluationCriterion, bool) {
	for _, c := range criteria {
		if c.ID == id {
			return c, true
		}
	}
	return models.EvaluationCriterion{}, false
}

func wrapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrBidNotFound), errors.Is(err, repository.ErrTenderNotFound):
		return fmt.Errorf("%w: %w", ErrBidNotFound, err)
	case errors.Is(err, repository.ErrBidFinalized):
		return fmt.Errorf("%w: %w", ErrBidFinalized, err)
	case errors.Is(err, repository.ErrConcurrentModification):
		return fmt.Errorf("%w: %w", ErrConcurrentModification, err)
	case errors.Is(err, repository.ErrUpdateFailed):
		return fmt.Errorf("%w: %w", ErrDatabaseUpdateFailed, err)
	default:
		return fmt.Errorf("%w: %w", ErrDatabaseQueryFailed, err)
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
