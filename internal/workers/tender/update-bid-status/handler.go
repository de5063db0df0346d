package updatebidstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/common/validation"
	"tender-workers/internal/models"
	"tender-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-bid-status"
)

var (
	ErrInvalidStatus        = errors.New("INVALID_STATUS")
	ErrBidNotFound          = errors.New("BID_NOT_FOUND")
	ErrBidFinalized         = errors.New("BID_FINALIZED")
	ErrDatabaseQueryFailed  = errors.New("DATABASE_QUERY_FAILED")
	ErrDatabaseUpdateFailed = errors.New("DATABASE_UPDATE_FAILED")
)

type StatusStore interface {
	UpdateStatus(ctx context.Context, bidID string, status models.BidStatus, rejectRemaining bool) (*repository.StatusChange, error)
	RecordAudit(ctx context.Context, entry models.AuditEntry)
}

type Handler struct {
	config *Config
	store  StatusStore
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, store StatusStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
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
		return h.errors.HandleJobError(jobCtx, client, job, apperrors.Classify(err,
			ErrInvalidStatus, ErrBidNotFound, ErrBidFinalized, ErrDatabaseQueryFailed, ErrDatabaseUpdateFailed))
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
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	change, err := h.store.UpdateStatus(ctx, input.BidID, input.Status, h.rejectRemaining(input))
	if err != nil {
		return nil, wrapStoreError(err)
	}

	out := &Output{
		BidID:          change.BidID,
		TenderID:       change.TenderID,
		PreviousStatus: change.PreviousStatus,
		Status:         change.Status,
		Changed:        change.PreviousStatus != change.Status,
		RejectedBidIDs: change.RejectedBidIDs,
		UpdatedAt:      change.UpdatedAt,
	}
	if out.RejectedBidIDs == nil {
		out.RejectedBidIDs = []string{}
	}
	if !out.Changed && len(out.RejectedBidIDs) == 0 {
		h.logger.Debug("bid already in requested status", map[string]interface{}{
			"bidId":  input.BidID,
			"status": input.Status,
		})
		return out, nil
	}

	h.store.RecordAudit(ctx, models.AuditEntry{
		EventType:    models.AuditBidStatusChanged,
		ResourceType: "bid",
		ResourceID:   change.BidID,
		ActorID:      input.EvaluatorID,
		Details: map[string]interface{}{
			"tenderId":       change.TenderID,
			"previousStatus": change.PreviousStatus,
			"status":         change.Status,
			"reason":         input.Reason,
			"rejectedBidIds": out.RejectedBidIDs,
		},
	})

	h.logger.Info("bid status changed", map[string]interface{}{
		"bidId":    change.BidID,
		"from":     change.PreviousStatus,
		"to":       change.Status,
		"rejected": len(out.RejectedBidIDs),
	})
	return out, nil
}

func (h *Handler) rejectRemaining(input *Input) bool {
	if input.RejectRemaining != nil {
		return *input.RejectRemaining
	}
	return h.config.RejectRemainingOnAward
}

func wrapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrBidNotFound):
		return fmt.Errorf("%w: %w", ErrBidNotFound, err)
	case errors.Is(err, repository.ErrBidFinalized):
		return fmt.Errorf("%w: %w", ErrBidFinalized, err)
	case errors.Is(err, repository.ErrQueryFailed):
		return fmt.Errorf("%w: %w", ErrDatabaseQueryFailed, err)
	default:
		return fmt.Errorf("%w: %w", ErrDatabaseUpdateFailed, err)
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
