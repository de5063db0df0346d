package calculatebidscores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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
	TaskType = "calculate-bid-scores"
)

var (
	ErrTenderNotFound      = errors.New("TENDER_NOT_FOUND")
	ErrDatabaseQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

type TenderStore interface {
	Criteria(ctx context.Context, tenderID string) ([]models.EvaluationCriterion, error)
	Bids(ctx context.Context, tenderID string) ([]models.Bid, error)
}

type Handler struct {
	config *Config
	store  TenderStore
	engine *scoring.Engine
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, store TenderStore, engine *scoring.Engine, log logger.Logger) *Handler {
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
		return h.errors.HandleJobError(jobCtx, client, job,
			apperrors.Classify(err, ErrTenderNotFound, ErrDatabaseQueryFailed))
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
	if input.TenderID == "" && len(input.Criteria) == 0 {
		return nil, apperrors.NewValidationError("either tenderId or criteria must be provided")
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	criteria, bids, err := h.load(ctx, input)
	if err != nil {
		return nil, err
	}

	scores := make([]BidScore, 0, len(bids))
	for _, b := range bids {
		total := h.engine.TotalScore(b, criteria, bids)
		scores = append(scores, BidScore{
			BidID:        b.ID,
			ContractorID: b.ContractorID,
			TotalScore:   total,
			Breakdown:    h.engine.Breakdown(b, criteria, bids),
		})
		metrics.BidTotalScore.Observe(float64(total))
	}

	h.logger.Info("bid scores calculated", map[string]interface{}{
		"tenderId": input.TenderID,
		"bids":     len(bids),
		"criteria": len(criteria),
	})

	return &Output{
		TenderID: input.TenderID,
		Scores:   scores,
		ScoredAt: h.engine.Now(),
	}, nil
}

// load prefers inline criteria and bids; either one missing is read from
// the store.
func (h *Handler) load(ctx context.Context, input *Input) ([]models.EvaluationCriterion, []models.Bid, error) {
	criteria, bids := input.Criteria, input.Bids
	if input.TenderID == "" {
		return criteria, bids, nil
	}

	var err error
	if len(criteria) == 0 {
		if criteria, err = h.store.Criteria(ctx, input.TenderID); err != nil {
			return nil, nil, h.wrapStoreError(err)
		}
	}
	if bids == nil {
		if bids, err = h.store.Bids(ctx, input.TenderID); err != nil {
			return nil, nil, h.wrapStoreError(err)
		}
	}
	return criteria, bids, nil
}

func (h *Handler) wrapStoreError(err error) error {
	if errors.Is(err, repository.ErrTenderNotFound) {
		return fmt.Errorf("%w: %w", ErrTenderNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrDatabaseQueryFailed, err)
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
