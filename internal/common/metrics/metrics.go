package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	BidTotalScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tender_bid_total_score",
			Help:    "Distribution of computed bid total scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	ManualScoreUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_manual_score_updates_total",
			Help: "Manual score overrides recorded by evaluators",
		},
		[]string{"criterion_type", "clamped"},
	)

	BidsRanked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tender_bids_ranked_total",
			Help: "Bids placed in a ranking",
		},
	)
)
