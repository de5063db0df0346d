package rankbids

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
	TaskType = "rank-bids"
)

var (
	ErrTenderNotFound      = errors.New("TENDER_NOT_FOUND")
	ErrDatabaseQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

type TenderStore interface {
	Criteria(ctx context.Context, tenderID string) ([]models.EvaluationCriterion, error)
	Bids(ctx context.Context, tenderID string) ([]models.Bid, error)
	CachedRanking(ctx context.Context, tenderID string) (*models.RankingSnapshot, bool)
	StoreRanking(ctx context.Context, snapshot models.RankingSnapshot) error
	RecordAudit(ctx context.Context, entry models.AuditEntry)
}

// RankingIndexer receives every fresh ranking of a stored tender.
type RankingIndexer interface {
	IndexRanking(ctx context.Context, snapshot models.RankingSnapshot) error
}

type Handler struct {
	config  *Config
	store   TenderStore
	indexer RankingIndexer
	engine  *scoring.Engine
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
}

// NewHandler accepts a nil indexer when search is disabled.
func NewHandler(config *Config, store TenderStore, indexer RankingIndexer, engine *scoring.Engine, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		store:   store,
		indexer: indexer,
		engine:  engine,
		errors:  apperrors.NewErrorHandler(log),
		logger:  log,
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

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return err
	}
	if _, err := cmd.Send(jobCtx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
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
	if input.TenderID == "" && len(input.Criteria) == 0 {
		return nil, apperrors.NewValidationError("either tenderId or criteria must be provided")
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	stored := input.TenderID != "" && len(input.Criteria) == 0 && input.Bids == nil

	if stored && input.UseCache {
		if snapshot, ok := h.store.CachedRanking(ctx, input.TenderID); ok {
			h.logger.Debug("ranking served from cache", map[string]interface{}{"tenderId": input.TenderID})
			return h.output(*snapshot, input.Limit, true), nil
		}
	}

	criteria, bids, err := h.load(ctx, input)
	if err != nil {
		return nil, err
	}

	ranked := h.engine.Rank(bids, criteria)
	snapshot := models.RankingSnapshot{
		TenderID: input.TenderID,
		RankedAt: h.engine.Now(),
		Entries:  make([]models.RankingEntry, 0, len(ranked)),
	}
	for _, r := range ranked {
		snapshot.Entries = append(snapshot.Entries, models.RankingEntry{
			BidID:        r.Bid.ID,
			ContractorID: r.Bid.ContractorID,
			TotalScore:   r.TotalScore,
			Position:     r.Position,
			TotalPrice:   r.Bid.TotalPrice,
			Status:       r.Bid.Status,
			SubmittedAt:  r.Bid.SubmittedAt,
		})
	}
	metrics.BidsRanked.Add(float64(len(ranked)))

	// inline bids or criteria are a what-if ranking, not the tender's own
	if stored {
		h.publish(ctx, snapshot)
	}

	h.logger.Info("bids ranked", map[string]interface{}{
		"tenderId": input.TenderID,
		"bids":     len(ranked),
	})
	return h.output(snapshot, input.Limit, false), nil
}

// publish caches, indexes and audits a fresh ranking. None of these may
// fail the job: the ranking itself is already computed.
func (h *Handler) publish(ctx context.Context, snapshot models.RankingSnapshot) {
	if err := h.store.StoreRanking(ctx, snapshot); err != nil {
		h.logger.Warn("failed to cache ranking", map[string]interface{}{
			"tenderId": snapshot.TenderID,
			"error":    err,
		})
	}
	if h.indexer != nil {
		if err := h.indexer.IndexRanking(ctx, snapshot); err != nil {
			h.logger.Warn("failed to index ranking", map[string]interface{}{
				"tenderId": snapshot.TenderID,
				"error":    err,
			})
		}
	}

	details := map[string]interface{}{"bids": len(snapshot.Entries)}
	if len(snapshot.Entries) > 0 {
		details["topBidId"] = snapshot.Entries[0].BidID
		details["topScore"] = snapshot.Entries[0].TotalScore
	}
	h.store.RecordAudit(ctx, models.AuditEntry{
		EventType:    models.AuditBidsRanked,
		ResourceType: "tender",
		ResourceID:   snapshot.TenderID,
		Details:      details,
	})
}

func (h *Handler) output(snapshot models.RankingSnapshot, limit int, fromCache bool) *Output {
	if h.config.MaxRankedBids > 0 && (limit <= 0 || limit > h.config.MaxRankedBids) {
		limit = h.config.MaxRankedBids
	}
	entries := snapshot.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []models.RankingEntry{}
	}

	out := &Output{
		TenderID:   snapshot.TenderID,
		RankedBids: entries,
		TotalBids:  len(snapshot.Entries),
		RankedAt:   snapshot.RankedAt,
		FromCache:  fromCache,
	}
	if len(entries) > 0 {
		out.TopBidID = entries[0].BidID
	}
	return out
}

func (h *Handler) load(ctx context.Context, input *Input) ([]models.EvaluationCriterion, []models.Bid, error) {
	criteria, bids := input.Criteria, input.Bids
	if input.TenderID == "" {
		return criteria, bids, nil
	}

	var err error
	if len(criteria) == 0 {
		if criteria, err = h.store.Criteria(ctx, input.TenderID); err != nil {
			return nil, nil, wrapStoreError(err)
		}
	}
	if bids == nil {
		if bids, err = h.store.Bids(ctx, input.TenderID); err != nil {
			return nil, nil, wrapStoreError(err)
		}
	}
	return criteria, bids, nil
}

func wrapStoreError(err error) error {
	if errors.Is(err, repository.ErrTenderNotFound) {
		return fmt.Errorf("%w: %w", ErrTenderNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrDatabaseQueryFailed, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
