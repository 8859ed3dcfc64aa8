package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// InsertTasksAndActivateRun writes every QUEUED task for a run and advances
// the run's stored status to RUNNING, in one transaction (spec §4.1 steps
// 3-4).
func (s *Store) InsertTasksAndActivateRun(ctx context.Context, runID string, tasks []domain.TaskPayload) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := make([]TaskRecord, 0, len(tasks))
		for _, t := range tasks {
			raw, err := json.Marshal(t)
			if err != nil {
				return apperr.Internal("marshal task payload", err)
			}
			records = append(records, TaskRecord{
				RunID:       runID,
				ProductType: t.ProductType,
				HashBucket:  t.HashBucket,
				State:       domain.TaskQueued,
				Attempts:    0,
				MaxAttempts: 3,
				Payload:     raw,
			})
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return apperr.Internal("insert tasks", err)
			}
		}
		if err := tx.Model(&RunRecord{}).Where("run_id = ?", runID).
			Update("status", domain.RunRunning).Error; err != nil {
			return apperr.Internal("activate run", err)
		}
		return nil
	})
}

// ClaimTasks atomically selects up to limit rows that are QUEUED or LEASED
// with an expired lease, and transitions them to LEASED for workerID. Uses
// SELECT ... FOR UPDATE SKIP LOCKED (MySQL 8.0+) so two concurrent claimers
// never observe the same row as claimable (spec §4.2, Testable Property 1).
func (s *Store) ClaimTasks(ctx context.Context, workerID string, limit int, leaseSeconds int) ([]TaskRecord, error) {
	var claimed []TaskRecord
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []TaskRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("state = ? OR (state = ? AND leased_until < ?)", domain.TaskQueued, domain.TaskLeased, now).
			Order("created_at ASC, id ASC").
			Limit(limit).
			Find(&candidates).Error
		if err != nil {
			return apperr.Internal("select claimable tasks", err)
		}
		if len(candidates) == 0 {
			return nil
		}

		ids := make([]uint, len(candidates))
		for i, c := range candidates {
			ids[i] = c.ID
		}
		leasedUntil := now.Add(time.Duration(leaseSeconds) * time.Second)
		err = tx.Model(&TaskRecord{}).Where("id IN ?", ids).Updates(map[string]any{
			"state":        domain.TaskLeased,
			"leased_by":    workerID,
			"leased_until": leasedUntil,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
		if err != nil {
			return apperr.Internal("lease claimed tasks", err)
		}

		return tx.Where("id IN ?", ids).Order("created_at ASC, id ASC").Find(&claimed).Error
	})
	return claimed, err
}

// Heartbeat extends leased_until for a task this worker currently holds.
// Returns a Transient error if the lease was lost (e.g. it expired and was
// reclaimed by another worker) so the caller can abandon its in-flight work.
func (s *Store) Heartbeat(ctx context.Context, taskID uint, workerID string, leaseSeconds int) error {
	res := s.db.WithContext(ctx).Model(&TaskRecord{}).
		Where("id = ? AND state = ? AND leased_by = ?", taskID, domain.TaskLeased, workerID).
		Update("leased_until", time.Now().Add(time.Duration(leaseSeconds)*time.Second))
	if res.Error != nil {
		return apperr.Internal("heartbeat", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Transient("lease no longer held by this worker", nil)
	}
	return nil
}

// CompleteTask upserts every result row and marks the task DONE in a single
// transaction (spec §4.2 "Complete"). The upsert key is
// (run_id, position_id, scenario_id); replays of an already-completed task
// do not duplicate rows (Testable Property 4).
func (s *Store) CompleteTask(ctx context.Context, taskID uint, results []ValuationResultRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(results) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "run_id"}, {Name: "position_id"}, {Name: "scenario_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"payload", "product_type", "portfolio_node_id", "currency", "updated_at",
				}),
			}).Create(&results).Error
			if err != nil {
				return apperr.Internal("upsert valuation results", err)
			}
		}
		if err := tx.Model(&TaskRecord{}).Where("id = ?", taskID).
			Update("state", domain.TaskDone).Error; err != nil {
			return apperr.Internal("mark task done", err)
		}
		return nil
	})
}

// FailTask records last_error and either requeues the task (transient
// failure with attempts remaining) or marks it DEAD (exhausted attempts, or
// fatal=true for a non-retryable error such as an unknown product type),
// per spec §4.2 "Fail" and §4.4 "Unknown product types".
func (s *Store) FailTask(ctx context.Context, taskID uint, errMsg string, fatal bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task TaskRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, taskID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("task not found")
		}
		if err != nil {
			return apperr.Internal("load task for fail", err)
		}

		updates := map[string]any{
			"last_error":   errMsg,
			"leased_until": nil,
			"leased_by":    "",
		}
		if fatal || task.Attempts >= task.MaxAttempts {
			updates["state"] = domain.TaskFailed
		} else {
			updates["state"] = domain.TaskQueued
		}
		return tx.Model(&TaskRecord{}).Where("id = ?", taskID).Updates(updates).Error
	})
}

// TaskByID loads a single task row by its surrogate id.
func (s *Store) TaskByID(ctx context.Context, id uint) (TaskRecord, error) {
	var task TaskRecord
	err := s.db.WithContext(ctx).First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TaskRecord{}, apperr.NotFound("task not found")
	}
	if err != nil {
		return TaskRecord{}, apperr.Internal("load task", err)
	}
	return task, nil
}

// DeadTasksForRun lists tasks in the DEAD state for a run, surfacing §7's
// error taxonomy to operators via the results service (SPEC_FULL §4.6.1).
func (s *Store) DeadTasksForRun(ctx context.Context, runID string) ([]TaskRecord, error) {
	var tasks []TaskRecord
	err := s.db.WithContext(ctx).Where("run_id = ? AND state = ?", runID, domain.TaskFailed).
		Order("created_at ASC").Find(&tasks).Error
	if err != nil {
		return nil, apperr.Internal("list dead tasks", err)
	}
	return tasks, nil
}

// TaskStateCounts returns the count of tasks per state for a run, used to
// derive the run's overall status (spec §4.1 "get run").
func (s *Store) TaskStateCounts(ctx context.Context, runID string) (map[string]int64, error) {
	type row struct {
		State string
		Count int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&TaskRecord{}).
		Select("state, count(*) as count").
		Where("run_id = ?", runID).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal("count task states", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.State] = r.Count
	}
	return out, nil
}
