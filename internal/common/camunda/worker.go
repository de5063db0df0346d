package camunda

import (
	"context"
	"time"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/metrics"
	"tender-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// JobHandler completes or fails the job itself and returns the error it
// reported, if any. ctx carries the job's span.
type JobHandler interface {
	Handle(ctx context.Context, client worker.JobClient, job entities.Job) error
}

type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

// CamundaWorker is a job worker whose jobs are counted, timed and traced.
type CamundaWorker struct {
	worker   worker.JobWorker
	handler  JobHandler
	obs      *observability.Observability
	logger   *zap.Logger
	taskType string
}

func NewWorker(
	client zbc.Client,
	taskType string,
	opts WorkerOptions,
	handler JobHandler,
	obs *observability.Observability,
	logger *zap.Logger,
) *CamundaWorker {
	w := newCamundaWorker(taskType, handler, obs, logger)
	w.worker = client.NewJobWorker().
		JobType(taskType).
		Handler(w.handle).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Open()

	logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", opts.MaxJobsActive),
		zap.Duration("timeout", opts.Timeout),
	)
	return w
}

func newCamundaWorker(taskType string, handler JobHandler, obs *observability.Observability, logger *zap.Logger) *CamundaWorker {
	if obs == nil {
		obs = &observability.Observability{}
	}
	return &CamundaWorker{
		handler:  handler,
		obs:      obs,
		logger:   logger.With(zap.String("taskType", taskType)),
		taskType: taskType,
	}
}

func (w *CamundaWorker) handle(client worker.JobClient, job entities.Job) {
	metrics.WorkerJobsActive.WithLabelValues(w.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(w.taskType).Dec()

	ctx, span := w.obs.StartSpan(context.Background(), w.taskType, job.Key)
	defer span.End()

	start := time.Now()
	err := w.handler.Handle(ctx, client, job)
	elapsed := time.Since(start)

	status := "completed"
	if err != nil {
		status = "failed"
		code := string(apperrors.Classify(err).Code)
		metrics.WorkerJobsFailed.WithLabelValues(w.taskType, code).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		w.logger.Warn("job failed",
			zap.Int64("jobKey", job.Key),
			zap.String("errorCode", code),
			zap.Duration("elapsed", elapsed),
		)
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(w.taskType).Inc()
	}

	metrics.WorkerJobDuration.WithLabelValues(w.taskType).Observe(elapsed.Seconds())
	w.obs.RecordJobProcessed(ctx, w.taskType, status)
	w.obs.RecordJobDuration(ctx, w.taskType, elapsed, status)
}

func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker")
	w.worker.Close()
	w.worker.AwaitClose()
}
