package querybidhistory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/common/validation"
	"tender-workers/internal/search"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "query-bid-history"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

type HistorySearcher interface {
	ContractorHistory(ctx context.Context, contractorID string, size int) ([]search.Placement, int64, error)
}

type Handler struct {
	config *Config
	index  HistorySearcher
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, index HistorySearcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		index:  index,
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
			apperrors.Classify(err, ErrSearchTimeout, ErrIndexNotFound, ErrSearchQueryFailed))
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
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	size := input.Size
	if size <= 0 {
		size = h.config.DefaultSize
	}
	if h.config.MaxSize > 0 && size > h.config.MaxSize {
		size = h.config.MaxSize
	}

	placements, total, err := h.index.ContractorHistory(ctx, input.ContractorID, size)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: %w", ErrSearchTimeout, err)
		case errors.Is(err, search.ErrIndexNotFound):
			return nil, fmt.Errorf("%w: %w", ErrIndexNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrSearchQueryFailed, err)
	}

	out := &Output{
		ContractorID: input.ContractorID,
		Placements:   placements,
		TotalHits:    total,
	}
	if out.Placements == nil {
		out.Placements = []search.Placement{}
	}
	if len(placements) > 0 {
		sum := 0
		for _, p := range placements {
			if p.Position == 1 {
				out.Wins++
			}
			sum += p.TotalScore
		}
		out.AverageScore = float64(sum) / float64(len(placements))
	}

	h.logger.Debug("bid history loaded", map[string]interface{}{
		"contractorId": input.ContractorID,
		"returned":     len(placements),
		"totalHits":    total,
	})
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
