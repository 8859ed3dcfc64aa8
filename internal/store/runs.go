package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/canonicaljson"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// UpsertRun inserts a new run in CREATED state, or — if run_id already
// exists — succeeds idempotently when the request content hash matches, or
// fails Conflict otherwise (spec §4.1 step 1, Testable Property 3). The
// returned bool reports whether this call inserted a new run row; callers
// must skip re-running fanout when it is false, since the existing run's
// tasks (if any) were already inserted by whichever call created it.
func (s *Store) UpsertRun(ctx context.Context, req domain.RunRequest) (bool, error) {
	hash, err := canonicaljson.Hash(req)
	if err != nil {
		return false, apperr.InvalidInput("unable to hash run request")
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return false, apperr.InvalidInput("unable to marshal run request")
	}

	var existing RunRecord
	err = s.db.WithContext(ctx).Where("run_id = ?", req.RunID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec := RunRecord{RunID: req.RunID, RequestHash: hash, Status: domain.RunCreated, Payload: raw}
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return false, apperr.Internal("create run", err)
		}
		return true, nil
	case err != nil:
		return false, apperr.Internal("lookup run", err)
	case existing.RequestHash != hash:
		return false, apperr.Conflict(fmt.Sprintf("run %s already exists with a different request body", req.RunID))
	default:
		return false, nil // idempotent no-op; fanout may already have happened
	}
}

// RunSummary is the data GetRun needs to compute the derived status.
type RunSummary struct {
	RunID       string
	StoredState string // CREATED or RUNNING, as last written by UpsertRun/InsertTasksAndActivateRun
	Request     domain.RunRequest
}

// GetRunRecord loads the stored run row and decoded request.
func (s *Store) GetRunRecord(ctx context.Context, runID string) (RunSummary, error) {
	var rec RunRecord
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RunSummary{}, apperr.NotFound(fmt.Sprintf("run %s", runID))
	}
	if err != nil {
		return RunSummary{}, apperr.Internal("get run", err)
	}
	var req domain.RunRequest
	if err := json.Unmarshal(rec.Payload, &req); err != nil {
		return RunSummary{}, apperr.Internal("decode run request", err)
	}
	return RunSummary{RunID: rec.RunID, StoredState: rec.Status, Request: req}, nil
}

// DerivedStatus computes the run's externally visible status from the
// stored status plus task state counts (spec §4.1 "get run"):
// all tasks DONE -> COMPLETED; any task DEAD -> FAILED; otherwise RUNNING.
// A run with stored status CREATED (fanout not yet run, or zero tasks)
// reports CREATED.
func DerivedStatus(stored string, counts map[string]int64) string {
	if stored == domain.RunCreated {
		return domain.RunCreated
	}
	total := int64(0)
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return domain.RunRunning
	}
	if counts[domain.TaskFailed] > 0 {
		return domain.RunFailed
	}
	if counts[domain.TaskDone] == total {
		return domain.RunCompleted
	}
	return domain.RunRunning
}
