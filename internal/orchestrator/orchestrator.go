// Package orchestrator implements run creation and fanout (spec §4.1): the
// four-step contract that turns an inbound run request into a set of
// QUEUED tasks, plus the derived "get run" read path. Grounded on the
// teacher's top-level orchestration style in blackhole.go — a thin struct
// wrapping the store, exposing one method per operation, each method doing
// validate-then-delegate.
package orchestrator

import (
	"context"
	"os"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/domain"
	"github.com/twg-quant/riskbatch/internal/metrics"
	"github.com/twg-quant/riskbatch/internal/stablehash"
	"github.com/twg-quant/riskbatch/internal/store"
)

// Orchestrator implements the create-run/get-run operations of spec §4.1.
type Orchestrator struct {
	store                  *store.Store
	log                    zerolog.Logger
	defaultPositionsPath   string // positions_snapshot_path fallback when a request has no position_snapshot_id
}

// New constructs an Orchestrator. defaultPositionsPath is used to resolve
// positions when a run request carries no position_snapshot_id, per the
// configured `positions_snapshot_path` (spec §6).
func New(s *store.Store, log zerolog.Logger, defaultPositionsPath string) *Orchestrator {
	return &Orchestrator{store: s, log: log.With().Str("component", "orchestrator").Logger(), defaultPositionsPath: defaultPositionsPath}
}

// RunStatus is the response shape of create-run and get-run.
type RunStatus struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// CreateRun executes the four-step create-run contract (spec §4.1).
func (o *Orchestrator) CreateRun(ctx context.Context, req domain.RunRequest) (RunStatus, error) {
	if err := validateRunRequest(req); err != nil {
		return RunStatus{}, err
	}
	if req.Execution.HashMod <= 0 {
		req.Execution.HashMod = 1
	}
	if len(req.Scenarios) == 0 {
		req.Scenarios = []string{domain.ScenarioBase}
	}

	// Step 1: upsert run row, idempotent on content hash. A run that already
	// existed with matching content already had fanout run by whichever call
	// created it; re-running steps 2-4 here would violate the task table's
	// natural-key unique index, so return its current status instead.
	created, err := o.store.UpsertRun(ctx, req)
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindConflict {
			metrics.RunsCreated.WithLabelValues("conflict").Inc()
		}
		return RunStatus{}, err
	}
	if !created {
		metrics.RunsCreated.WithLabelValues("idempotent_noop").Inc()
		return o.GetRun(ctx, req.RunID)
	}

	// Step 2: resolve positions for the scope and persist as a new snapshot.
	positions, err := o.resolvePositions(ctx, req)
	if err != nil {
		return RunStatus{}, err
	}
	if len(positions) == 0 {
		return RunStatus{}, apperr.InvalidInput("resolved position scope is empty")
	}
	if _, _, err := o.store.CreatePositionSnapshot(ctx, positions); err != nil {
		return RunStatus{}, err
	}

	// Step 3: partition by (product_type, stable_hash(position_id) mod hash_mod).
	tasks := partition(req, positions)

	// Step 4: insert tasks and advance the run to RUNNING.
	if err := o.store.InsertTasksAndActivateRun(ctx, req.RunID, tasks); err != nil {
		return RunStatus{}, err
	}
	metrics.RunsCreated.WithLabelValues("created").Inc()

	return RunStatus{RunID: req.RunID, Status: domain.RunRunning}, nil
}

// GetRun returns the run's metadata and derived status (spec §4.1 "get run").
func (o *Orchestrator) GetRun(ctx context.Context, runID string) (RunStatus, error) {
	summary, err := o.store.GetRunRecord(ctx, runID)
	if err != nil {
		return RunStatus{}, err
	}
	counts, err := o.store.TaskStateCounts(ctx, runID)
	if err != nil {
		return RunStatus{}, err
	}
	status := store.DerivedStatus(summary.StoredState, counts)
	return RunStatus{RunID: runID, Status: status}, nil
}

func validateRunRequest(req domain.RunRequest) error {
	if req.RunID == "" {
		return apperr.InvalidInput("run_id is required")
	}
	if req.MarketSnapshotID == "" {
		return apperr.InvalidInput("market_snapshot_id is required")
	}
	if len(req.Measures) == 0 {
		return apperr.InvalidInput("measures must be a non-empty list")
	}
	if len(req.PortfolioScope) == 0 {
		return apperr.InvalidInput("portfolio_scope must be a non-empty list")
	}
	return nil
}

// resolvePositions loads the position universe (from an existing
// position_snapshot_id, or the configured fallback file) and filters it to
// the requested portfolio scope.
func (o *Orchestrator) resolvePositions(ctx context.Context, req domain.RunRequest) ([]domain.Position, error) {
	var all []domain.Position
	var err error

	switch {
	case req.PositionSnapshotID != "":
		all, err = o.store.GetPositionSnapshot(ctx, req.PositionSnapshotID)
	default:
		all, err = loadPositionsFromFile(o.defaultPositionsPath)
	}
	if err != nil {
		return nil, err
	}

	scope := make(map[string]bool, len(req.PortfolioScope))
	for _, node := range req.PortfolioScope {
		scope[node] = true
	}

	filtered := make([]domain.Position, 0, len(all))
	for _, p := range all {
		if scope[p.PortfolioNodeID] {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// loadPositionsFromFile reads a JSON array of positions from disk,
// matching the teacher's LoadConfig read-then-unmarshal idiom.
func loadPositionsFromFile(path string) ([]domain.Position, error) {
	if path == "" {
		return nil, apperr.NotFound("no position_snapshot_id supplied and no positions_snapshot_path configured")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NotFound("positions_snapshot_path: " + err.Error())
	}
	var positions []domain.Position
	if err := json.Unmarshal(raw, &positions); err != nil {
		return nil, apperr.Internal("decode positions file", err)
	}
	return positions, nil
}

// partition groups positions by (product_type, stable_hash(position_id) mod
// hash_mod) and builds one TaskPayload per non-empty group (spec §4.1 step
// 3).
func partition(req domain.RunRequest, positions []domain.Position) []domain.TaskPayload {
	type key struct {
		productType string
		bucket      int
	}
	groups := make(map[key][]domain.Position)
	order := make([]key, 0)

	for _, p := range positions {
		k := key{productType: p.ProductType, bucket: stablehash.Bucket(p.PositionID, req.Execution.HashMod)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], p)
	}

	tasks := make([]domain.TaskPayload, 0, len(order))
	for _, k := range order {
		tasks = append(tasks, domain.TaskPayload{
			RunID:            req.RunID,
			MarketSnapshotID: req.MarketSnapshotID,
			ProductType:      k.productType,
			HashBucket:       k.bucket,
			Positions:        groups[k],
			Measures:         req.Measures,
			Scenarios:        req.Scenarios,
		})
	}
	return tasks
}
