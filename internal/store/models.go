// Package store is the single source of truth for riskbatch's durable
// state: snapshots, runs, tasks and results, backed by gorm.io/gorm over
// MySQL, following the teacher's internal/db persistence idiom
// (internal/db/transaction_recorder.go: a GORM model per table, a thin
// wrapper struct holding *gorm.DB, AutoMigrate on construction).
package store

import "time"

// MarketSnapshotRecord is the `marketdata_snapshot` table (spec §6).
type MarketSnapshotRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SnapshotID  string `gorm:"uniqueIndex;size:128;not null"`
	PayloadHash string `gorm:"size:64;not null"`
	Payload     []byte `gorm:"type:json;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (MarketSnapshotRecord) TableName() string { return "marketdata_snapshot" }

// PositionSnapshotRecord is the `position_snapshot` table.
type PositionSnapshotRecord struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement"`
	PositionSnapshotID  string `gorm:"uniqueIndex;size:128;not null"`
	PayloadHash         string `gorm:"size:64;not null"`
	Payload             []byte `gorm:"type:json;not null"` // []domain.Position
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

func (PositionSnapshotRecord) TableName() string { return "position_snapshot" }

// RunRecord is the `run` table. Status here is the last status explicitly
// written (CREATED/RUNNING); the derived COMPLETED/FAILED status used by
// "get run" (spec §4.1) is computed from TaskRecord rows, never written
// back, per §5's "Run status transitions are... derived, not written
// racily by multiple actors".
type RunRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	RunID       string    `gorm:"uniqueIndex;size:128;not null"`
	RequestHash string    `gorm:"size:64;not null"` // canonical hash of the create-run request, for idempotency/conflict detection
	Status      string    `gorm:"size:16;not null"`
	Payload     []byte    `gorm:"type:json;not null"` // domain.RunRequest
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (RunRecord) TableName() string { return "run" }

// TaskRecord is the `run_task` table: the leasable unit of work.
type TaskRecord struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"`
	RunID       string     `gorm:"size:128;not null;uniqueIndex:idx_task_natural_key"`
	ProductType string     `gorm:"size:32;not null;uniqueIndex:idx_task_natural_key"`
	HashBucket  int        `gorm:"not null;uniqueIndex:idx_task_natural_key"`
	State       string     `gorm:"size:16;not null;index"`
	Attempts    int        `gorm:"not null;default:0"`
	MaxAttempts int        `gorm:"not null;default:3"`
	LeasedUntil *time.Time `gorm:"index"`
	LeasedBy    string     `gorm:"size:64"`
	LastError   string     `gorm:"type:text"`
	Payload     []byte     `gorm:"type:json;not null"` // domain.TaskPayload
	CreatedAt   time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

func (TaskRecord) TableName() string { return "run_task" }

// ValuationResultRecord is the `valuation_result` table. ProductType,
// PortfolioNodeID and Currency are denormalized from the priced position so
// the results cube (spec §4.6) can GROUP BY them without joining back to
// the task payload on every query.
type ValuationResultRecord struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	RunID           string    `gorm:"size:128;not null;uniqueIndex:idx_result_natural_key"`
	PositionID      string    `gorm:"size:128;not null;uniqueIndex:idx_result_natural_key"`
	ScenarioID      string    `gorm:"size:32;not null;uniqueIndex:idx_result_natural_key"`
	ProductType     string    `gorm:"size:32;not null;index"`
	PortfolioNodeID string    `gorm:"size:128;not null;index"`
	Currency        string    `gorm:"size:8;not null;index"`
	Payload         []byte    `gorm:"type:json;not null"` // domain.ValuationResultPayload
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (ValuationResultRecord) TableName() string { return "valuation_result" }

// AllModels lists every model for AutoMigrate, in dependency order.
func AllModels() []any {
	return []any{
		&MarketSnapshotRecord{},
		&PositionSnapshotRecord{},
		&RunRecord{},
		&TaskRecord{},
		&ValuationResultRecord{},
	}
}
