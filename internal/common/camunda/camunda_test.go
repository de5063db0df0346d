package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ============================================================================
// RETRY
// ============================================================================

func testClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

func TestExecuteWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantCode  apperrors.ErrorCode
	}{
		{
			name:      "succeeds after transient failures",
			errs:      []error{stderrors.New("rpc error: Unavailable"), stderrors.New("connection reset by peer")},
			wantCalls: 3,
		},
		{
			name:      "gives up after max retries",
			errs:      []error{stderrors.New("unavailable"), stderrors.New("unavailable"), stderrors.New("unavailable")},
			wantCalls: 3,
			wantCode:  apperrors.ErrCodeExternalService,
		},
		{
			name:      "does not retry permanent errors",
			errs:      []error{stderrors.New("process definition not found")},
			wantCalls: 1,
			wantCode:  apperrors.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			result, err := testClient(2).ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
				calls++
				if calls <= len(tt.errs) {
					return nil, tt.errs[calls-1]
				}
				return "ok", nil
			}, "topology")

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "ok", result)
				return
			}
			var se *apperrors.StandardError
			require.True(t, stderrors.As(err, &se))
			assert.Equal(t, tt.wantCode, se.Code)
		})
	}
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(5).ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
		return nil, stderrors.New("connection refused")
	}, "topology")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapZeebeError(t *testing.T) {
	tests := map[string]apperrors.ErrorCode{
		"context deadline exceeded":  apperrors.ErrCodeTimeout,
		"job not found":              apperrors.ErrCodeNotFound,
		"instance already exists":    apperrors.ErrCodeBusinessRule,
		"rpc error: Unauthorized":    apperrors.ErrCodeAuthentication,
		"connection refused":         apperrors.ErrCodeExternalService,
		"something nobody expected":  apperrors.ErrCodeExternalService,
	}
	for msg, want := range tests {
		err := mapZeebeError(stderrors.New(msg), "complete", 0)
		var se *apperrors.StandardError
		require.True(t, stderrors.As(err, &se), msg)
		assert.Equal(t, want, se.Code, msg)
	}
}

// ============================================================================
// INSTRUMENTED WORKER
// ============================================================================

type stubHandler struct {
	err  error
	seen *trace.SpanContext
}

func (s stubHandler) Handle(ctx context.Context, _ worker.JobClient, _ entities.Job) error {
	if s.seen != nil {
		*s.seen = trace.SpanContextFromContext(ctx)
	}
	return s.err
}

func testJob(key int64) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: key, Type: "test-task"}}
}

func TestWorkerHandle_CountsOutcome(t *testing.T) {
	const taskType = "camunda-test-task"

	ok := newCamundaWorker(taskType, stubHandler{}, nil, zap.NewNop())
	ok.handle(nil, testJob(1))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(taskType)))

	failing := newCamundaWorker(taskType, stubHandler{
		err: apperrors.New(apperrors.ErrCodeBidFinalized, "bid is awarded", nil),
	}, nil, zap.NewNop())
	failing.handle(nil, testJob(2))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(taskType, "BID_FINALIZED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
}

func TestWorkerHandle_HandlerRunsInsideJobSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var seen trace.SpanContext
	w := newCamundaWorker("traced-task", stubHandler{seen: &seen}, nil, zap.NewNop())
	w.handle(nil, testJob(7))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "job traced-task", ended[0].Name())
	require.True(t, seen.IsValid())
	assert.Equal(t, ended[0].SpanContext().SpanID(), seen.SpanID())
	assert.Equal(t, ended[0].SpanContext().TraceID(), seen.TraceID())
}
