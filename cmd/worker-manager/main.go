// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tender-workers/internal/common/aws"
	"tender-workers/internal/common/camunda"
	"tender-workers/internal/common/config"
	"tender-workers/internal/common/database"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/common/observability"
	"tender-workers/internal/repository"
	"tender-workers/internal/scoring"
	"tender-workers/internal/search"

	qbh "tender-workers/internal/workers/data-access/query-bid-history"
	qtd "tender-workers/internal/workers/data-access/query-tender-data"
	cbs "tender-workers/internal/workers/tender/calculate-bid-scores"
	nb "tender-workers/internal/workers/tender/notify-bidder"
	rb "tender-workers/internal/workers/tender/rank-bids"
	ubs "tender-workers/internal/workers/tender/update-bid-status"
	ums "tender-workers/internal/workers/tender/update-manual-score"
	vtc "tender-workers/internal/workers/tender/validate-tender-criteria"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// manager owns the workers started from the configuration so they can be
// stopped together.
type manager struct {
	cfg     *config.Config
	client  *camunda.Client
	obs     *observability.Observability
	log     *zap.Logger
	workers []*camunda.CamundaWorker
}

// workerConfig falls back to the broker-wide settings for anything the
// worker section leaves unset.
func (m *manager) workerConfig(taskType string) config.WorkerConfig {
	wc := config.GetWorkerConfig(m.cfg, taskType)
	if wc.MaxJobsActive <= 0 {
		wc.MaxJobsActive = m.cfg.Camunda.MaxJobsActive
	}
	if wc.Timeout <= 0 {
		wc.Timeout = m.cfg.Camunda.Timeout
	}
	return wc
}

func (m *manager) enabled(taskType string) bool {
	return config.IsWorkerEnabled(m.cfg, taskType)
}

func (m *manager) timeout(taskType string) time.Duration {
	return config.GetDuration(m.workerConfig(taskType).Timeout)
}

func (m *manager) start(taskType string, handler camunda.JobHandler) {
	wc := m.workerConfig(taskType)
	w := camunda.NewWorker(m.client.GetClient(), taskType, camunda.WorkerOptions{
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
	}, handler, m.obs, m.log)
	m.workers = append(m.workers, w)
}

func (m *manager) stop() {
	for _, w := range m.workers {
		w.Stop()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting worker manager",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.Plaintext,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("postgres connected")

	// --- Redis ---
	// Caching is optional; the repository reads through to Postgres when
	// Redis is unavailable.
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 5, time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Warn("redis unavailable, running without cache", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
		zapLog.Info("redis connected")
	}

	// --- Elasticsearch ---
	var rankingIndex *search.RankingIndex
	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, ranking history disabled", zap.Error(err))
		} else {
			rankingIndex = search.NewRankingIndex(esClient.Client, cfg.Search.RankingIndex)
			zapLog.Info("elasticsearch connected", zap.String("index", cfg.Search.RankingIndex))
		}
	}

	// --- Scoring engine and repository ---
	tieBreak, err := scoring.ParseTieBreak(cfg.Scoring.TieBreak)
	if err != nil {
		zapLog.Fatal("invalid scoring configuration", zap.Error(err))
	}
	engine := scoring.New(
		scoring.WithTieBreak(tieBreak),
		scoring.WithWeightNormalization(cfg.Scoring.NormalizeWeights),
		scoring.WithManualScoreClamping(cfg.Scoring.ClampEnabled()),
	)

	var cache *redis.Client
	if rdb != nil {
		cache = rdb.GetClient()
	}
	repo := repository.New(pg.GetDB(), cache, repository.Config{
		CriteriaTTL: time.Duration(cfg.Scoring.CriteriaCacheTTL) * time.Second,
		RankingTTL:  time.Duration(cfg.Scoring.RankingCacheTTL) * time.Second,
	}, log)

	m := &manager{cfg: cfg, client: zeebe, obs: obs, log: zapLog}

	// --- Tender workers ---
	if m.enabled(vtc.TaskType) {
		c := vtc.LoadConfig()
		c.Timeout = m.timeout(vtc.TaskType)
		m.start(vtc.TaskType, vtc.NewHandler(c, repo, log))
	}

	if m.enabled(cbs.TaskType) {
		c := cbs.LoadConfig()
		c.Timeout = m.timeout(cbs.TaskType)
		m.start(cbs.TaskType, cbs.NewHandler(c, repo, engine, log))
	}

	if m.enabled(rb.TaskType) {
		c := rb.LoadConfig()
		c.Timeout = m.timeout(rb.TaskType)
		if cfg.Scoring.MaxRankedBids > 0 {
			c.MaxRankedBids = cfg.Scoring.MaxRankedBids
		}
		var indexer rb.RankingIndexer
		if rankingIndex != nil {
			indexer = rankingIndex
		}
		m.start(rb.TaskType, rb.NewHandler(c, repo, indexer, engine, log))
	}

	if m.enabled(ums.TaskType) {
		c := ums.LoadConfig()
		c.Timeout = m.timeout(ums.TaskType)
		m.start(ums.TaskType, ums.NewHandler(c, repo, engine, log))
	}

	if m.enabled(ubs.TaskType) {
		c := ubs.LoadConfig()
		c.Timeout = m.timeout(ubs.TaskType)
		m.start(ubs.TaskType, ubs.NewHandler(c, repo, log))
	}

	if m.enabled(nb.TaskType) {
		awsClients, err := aws.New(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Error("aws clients unavailable, notify-bidder not started", zap.Error(err))
		} else {
			c := nb.LoadConfig()
			c.Timeout = m.timeout(nb.TaskType)
			c.EmailEnabled = cfg.Notifications.Email.Enabled
			c.SMSEnabled = cfg.Notifications.SMS.Enabled
			if cfg.Notifications.Email.FromEmail != "" {
				c.FromEmail = cfg.Notifications.Email.FromEmail
			}
			m.start(nb.TaskType, nb.NewHandler(c, repo, awsClients.SES, awsClients.SNS, log))
		}
	}

	// --- Data access workers ---
	if m.enabled(qtd.TaskType) {
		c := qtd.LoadConfig()
		c.Timeout = m.timeout(qtd.TaskType)
		m.start(qtd.TaskType, qtd.NewHandler(c, pg.GetDB(), log))
	}

	if m.enabled(qbh.TaskType) {
		if rankingIndex == nil {
			zapLog.Warn("search disabled, query-bid-history not started")
		} else {
			c := qbh.LoadConfig()
			c.Timeout = m.timeout(qbh.TaskType)
			m.start(qbh.TaskType, qbh.NewHandler(c, rankingIndex, log))
		}
	}

	zapLog.Info("workers registered", zap.Int("count", len(m.workers)))

	// --- Health & metrics ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"workers": len(m.workers),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"zeebe": "ok", "postgres": "ok"}
		code := http.StatusOK
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			checks["zeebe"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		status := "ready"
		if code != http.StatusOK {
			status = "not_ready"
		}
		writeStatus(w, code, map[string]interface{}{"status": status, "checks": checks})
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("health server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("health server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("shutting down", zap.String("signal", sig.String()))

	m.stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("health server shutdown", zap.Error(err))
	}
	zapLog.Info("worker manager stopped")
}

func writeStatus(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
