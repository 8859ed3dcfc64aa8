// Package metrics defines the Prometheus counters/histograms exposed by
// riskbatch services and workers. prometheus/client_golang is an indirect
// dependency of the teacher's go.mod already (pulled in transitively); this
// package promotes it to a direct, exercised dependency, in the idiom
// cuemby-warren and AKJUS-bsc-erigon use it directly (counters/gauges
// registered on prometheus.DefaultRegisterer, scraped via promhttp).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksClaimed counts successful ClaimTasks rows, labeled by worker_id.
	TasksClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskbatch_tasks_claimed_total",
		Help: "Number of task rows transitioned to LEASED by a claim.",
	}, []string{"worker_id"})

	// TasksDone counts tasks committed DONE, labeled by product_type.
	TasksDone = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskbatch_tasks_done_total",
		Help: "Number of tasks committed DONE.",
	}, []string{"product_type"})

	// TasksFailed counts transient failures that returned a task to QUEUED.
	TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskbatch_tasks_failed_total",
		Help: "Number of task attempts that failed and were requeued.",
	}, []string{"product_type"})

	// TasksDead counts tasks that reached the terminal DEAD state.
	TasksDead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskbatch_tasks_dead_total",
		Help: "Number of tasks that exhausted attempts or hit a fatal error.",
	}, []string{"product_type"})

	// TaskDuration observes wall-clock seconds spent processing one task,
	// from claim to commit/fail.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskbatch_task_duration_seconds",
		Help:    "Wall-clock time spent processing a single claimed task.",
		Buckets: prometheus.DefBuckets,
	}, []string{"product_type"})

	// RunsCreated counts run creation requests, labeled by outcome
	// ("created", "idempotent_noop", "conflict").
	RunsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskbatch_runs_created_total",
		Help: "Run creation requests by outcome.",
	}, []string{"outcome"})
)
