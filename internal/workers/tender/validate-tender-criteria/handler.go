package validatetendercriteria

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/common/validation"
	"tender-workers/internal/models"
	"tender-workers/internal/repository"
	"tender-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-tender-criteria"
)

var (
	ErrTenderNotFound      = errors.New("TENDER_NOT_FOUND")
	ErrDatabaseQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

type CriteriaSource interface {
	Criteria(ctx context.Context, tenderID string) ([]models.EvaluationCriterion, error)
}

type Handler struct {
	config *Config
	source CriteriaSource
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, source CriteriaSource, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		source: source,
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

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	if _, err := cmd.Send(jobCtx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	return nil
}

// parseInput reports schema violations as CRITERIA_INVALID: a malformed
// criteria list is a modelling error, not a retryable one.
func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse variables: %v", err))
	}
	if result := validation.ValidateInput(variables, GetInputSchema()); !result.Valid {
		return nil, apperrors.New(apperrors.ErrCodeCriteriaInvalid,
			strings.Join(result.GetErrorMessages(), "; "), nil)
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCriteriaInvalid, fmt.Sprintf("parse input: %v", err), err)
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	criteria := input.Criteria
	if len(criteria) == 0 && input.TenderID != "" {
		stored, err := h.source.Criteria(ctx, input.TenderID)
		if errors.Is(err, repository.ErrTenderNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrTenderNotFound, err)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseQueryFailed, err)
		}
		criteria = stored
	}
	if criteria == nil {
		criteria = []models.EvaluationCriterion{}
	}

	if input.Normalize {
		criteria = scoring.NormalizeWeights(criteria)
	}

	issues := scoring.ValidateCriteria(criteria)
	if issues == nil {
		issues = []scoring.CriteriaIssue{}
	}
	out := &Output{
		Valid:       len(issues) == 0,
		WeightTotal: roundHundredths(scoring.WeightTotal(criteria)),
		Normalized:  input.Normalize,
		Issues:      issues,
		Criteria:    criteria,
	}

	h.logger.Info("criteria validated", map[string]interface{}{
		"tenderId":    input.TenderID,
		"criteria":    len(criteria),
		"issues":      len(issues),
		"weightTotal": out.WeightTotal,
	})

	if !out.Valid && h.config.FailOnIssues {
		stdErr := apperrors.New(apperrors.ErrCodeCriteriaInvalid, describe(issues), nil)
		stdErr.Metadata = map[string]interface{}{"issues": issues}
		return nil, stdErr
	}
	return out, nil
}

func describe(issues []scoring.CriteriaIssue) string {
	parts := make([]string, 0, len(issues))
	for _, i := range issues {
		if i.CriterionID != "" {
			parts = append(parts, i.CriterionID+": "+i.Message)
			continue
		}
		parts = append(parts, i.Message)
	}
	return strings.Join(parts, "; ")
}

// roundHundredths keeps float noise such as 99.99999999 out of the output.
func roundHundredths(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
