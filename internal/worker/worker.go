// Package worker implements the claim-process-commit loop of spec §4.3:
// claim leasable tasks, dispatch each position to its pricer, collect
// results, and commit or fail the task. Grounded on cuemby-warren's
// pkg/worker health-monitor idiom — a ticker-driven loop selecting on a
// stop channel/context, with a background goroutine per in-flight unit of
// work extending its own lease.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/canonicaljson"
	"github.com/twg-quant/riskbatch/internal/domain"
	"github.com/twg-quant/riskbatch/internal/metrics"
	"github.com/twg-quant/riskbatch/internal/pricer"
	"github.com/twg-quant/riskbatch/internal/scenario"
	"github.com/twg-quant/riskbatch/internal/store"
)

// Worker claims and processes tasks in a loop until its context is
// cancelled.
type Worker struct {
	store         *store.Store
	registry      *pricer.Registry
	log           zerolog.Logger
	workerID      string
	leaseSeconds  int
	pollInterval  time.Duration
	claimBatch    int
}

// Config configures a Worker (spec §4.3). The worker subcommand fills it
// from internal/config.
type Config struct {
	WorkerID     string
	LeaseSeconds int
	PollInterval time.Duration
	ClaimBatch   int
}

// New constructs a Worker against s, dispatching positions via registry.
func New(s *store.Store, registry *pricer.Registry, log zerolog.Logger, cfg Config) *Worker {
	if cfg.ClaimBatch <= 0 {
		cfg.ClaimBatch = 1
	}
	return &Worker{
		store:        s,
		registry:     registry,
		log:          log.With().Str("component", "worker").Str("worker_id", cfg.WorkerID).Logger(),
		workerID:     cfg.WorkerID,
		leaseSeconds: cfg.LeaseSeconds,
		pollInterval: cfg.PollInterval,
		claimBatch:   cfg.ClaimBatch,
	}
}

// Run loops claiming and processing tasks until ctx is cancelled. It never
// returns an error on graceful cancellation.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopping")
			return nil
		default:
		}

		claimed, err := w.store.ClaimTasks(ctx, w.workerID, w.claimBatch, w.leaseSeconds)
		if err != nil {
			w.log.Error().Err(err).Msg("claim failed")
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				continue
			}
		}
		if len(claimed) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				continue
			}
		}
		metrics.TasksClaimed.WithLabelValues(w.workerID).Add(float64(len(claimed)))

		for _, task := range claimed {
			w.processTask(ctx, task)
		}
	}
}

// processTask decodes the task payload, prices every position under every
// requested scenario, and commits or fails the task. A heartbeat goroutine
// extends the lease while processing runs past half the lease duration
// (spec §4.3).
func (w *Worker) processTask(ctx context.Context, task store.TaskRecord) {
	start := time.Now()
	log := w.log.With().Uint("task_id", task.ID).Str("run_id", task.RunID).Str("product_type", task.ProductType).Logger()

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeatLoop(heartbeatCtx, task.ID, log)

	results, failErr := w.priceTask(ctx, task)
	metrics.TaskDuration.WithLabelValues(task.ProductType).Observe(time.Since(start).Seconds())
	stopHeartbeat()

	if failErr != nil {
		fatal := false
		if appErr, ok := apperr.As(failErr); ok {
			fatal = appErr.Kind == apperr.KindFatal
		}
		if err := w.store.FailTask(ctx, task.ID, failErr.Error(), fatal); err != nil {
			log.Error().Err(err).Msg("fail-task commit failed")
		}
		if fatal || task.Attempts >= task.MaxAttempts {
			metrics.TasksDead.WithLabelValues(task.ProductType).Inc()
		} else {
			metrics.TasksFailed.WithLabelValues(task.ProductType).Inc()
		}
		log.Warn().Err(failErr).Bool("fatal", fatal).Msg("task failed")
		return
	}

	if err := w.store.CompleteTask(ctx, task.ID, results); err != nil {
		log.Error().Err(err).Msg("complete-task commit failed")
		return
	}
	metrics.TasksDone.WithLabelValues(task.ProductType).Inc()
	log.Info().Int("results", len(results)).Msg("task completed")
}

// heartbeatLoop extends task's lease on a tick while ctx is live, so a
// claim that outruns half its lease isn't silently reclaimed by another
// worker (spec §4.3).
func (w *Worker) heartbeatLoop(ctx context.Context, taskID uint, log zerolog.Logger) {
	if w.leaseSeconds <= 0 {
		return
	}
	interval := time.Duration(w.leaseSeconds) * time.Second / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.Heartbeat(ctx, taskID, w.workerID, w.leaseSeconds); err != nil {
				log.Warn().Err(err).Msg("heartbeat failed; lease may have been reclaimed")
				return
			}
		}
	}
}

// priceTask decodes the task's payload and prices every position under
// every requested scenario, returning one ValuationResultRecord per
// (position, scenario) pair.
func (w *Worker) priceTask(ctx context.Context, task store.TaskRecord) ([]store.ValuationResultRecord, error) {
	var payload domain.TaskPayload
	if err := decodeTaskPayload(task.Payload, &payload); err != nil {
		return nil, apperr.Fatal("decode task payload", err)
	}

	snapshot, err := w.store.GetMarketSnapshot(ctx, payload.MarketSnapshotID)
	if err != nil {
		return nil, err
	}

	fn, err := w.registry.Dispatch(payload.ProductType)
	if err != nil {
		return nil, err
	}

	results := make([]store.ValuationResultRecord, 0, len(payload.Positions)*len(payload.Scenarios))
	for _, position := range payload.Positions {
		for _, scenarioID := range payload.Scenarios {
			bumped, err := scenario.Apply(snapshot, scenarioID)
			if err != nil {
				return nil, apperr.InvalidInput("apply scenario: " + err.Error())
			}

			measures, err := fn(position, position.Instrument, bumped, payload.Measures, scenarioID)
			if err != nil {
				return nil, err
			}

			inputHash, err := canonicaljson.Hash(struct {
				Position domain.Position `json:"position"`
				Snapshot domain.MarketSnapshotPayload `json:"snapshot"`
				Scenario string `json:"scenario_id"`
				Measures []string `json:"measures"`
			}{position, snapshot, scenarioID, payload.Measures})
			if err != nil {
				return nil, apperr.Internal("hash task input", err)
			}

			resultPayload := domain.ValuationResultPayload{
				RunID:      payload.RunID,
				PositionID: position.PositionID,
				ScenarioID: scenarioID,
				Measures:   measures,
				InputHash:  inputHash,
			}
			rec, err := store.NewValuationResultRecord(resultPayload, position.ProductType, position.PortfolioNodeID, position.Instrument.Currency)
			if err != nil {
				return nil, err
			}
			results = append(results, rec)
		}
	}
	return results, nil
}

func decodeTaskPayload(raw []byte, out *domain.TaskPayload) error {
	return json.Unmarshal(raw, out)
}
