package querytenderdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/common/validation"
	"tender-workers/internal/models"
	"tender-workers/internal/workers/data-access/query-tender-data/queries"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "query-tender-data"
)

var (
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
	ErrInvalidQueryType     = errors.New("INVALID_QUERY_TYPE")
)

type Handler struct {
	config *Config
	db     *sql.DB
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(jobCtx context.Context, client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return h.errors.HandleJobError(jobCtx, client, job,
			apperrors.NewValidationError(fmt.Sprintf("parse variables: %v", err)))
	}
	if result := validation.ValidateInput(variables, GetInputSchema()); !result.Valid {
		return h.errors.HandleJobError(jobCtx, client, job,
			apperrors.NewValidationError(strings.Join(result.GetErrorMessages(), "; ")))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return h.errors.HandleJobError(jobCtx, client, job,
			apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
	}

	ctx, cancel := context.WithTimeout(jobCtx, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		return h.errors.HandleJobError(jobCtx, client, job,
			apperrors.Classify(err, ErrInvalidQueryType, ErrQueryTimeout, ErrQueryExecutionFailed))
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewValidationError("input cannot be nil")
	}

	queryType := models.QueryType(input.QueryType)
	if _, exists := queries.Registry[queryType]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, input.QueryType)
	}

	params := make(map[string]interface{})
	if input.TenderID != "" {
		params["tenderId"] = input.TenderID
	}
	if input.BidID != "" {
		params["bidId"] = input.BidID
	}
	if input.Status != "" {
		params["status"] = input.Status
	}
	if input.Limit > 0 {
		params["limit"] = input.Limit
	}

	data, rowCount, execTime, err := queries.Execute(ctx, h.db, queryType, params)
	if err != nil {
		switch {
		case errors.Is(err, queries.ErrMissingParam):
			return nil, apperrors.NewValidationError(fmt.Sprintf("%s: %v", queryType, err))
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: %s", ErrQueryTimeout, queryType)
		}
		return nil, fmt.Errorf("%w: %w", ErrQueryExecutionFailed, err)
	}

	h.logger.Debug("query executed", map[string]interface{}{
		"queryType":       queryType,
		"rowCount":        rowCount,
		"executionTimeMs": execTime,
	})

	return &Output{
		Data:            data,
		RowCount:        rowCount,
		ExecutionTimeMs: execTime,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
