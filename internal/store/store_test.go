package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/canonicaljson"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// newMockStore wires a *Store to a sqlmock-backed *sql.DB without
// AutoMigrate, following the teacher's internal/db/transaction_recorder_test.go
// pattern (gorm.Open with mysql.New(Conn: sqlDB), expectations set per test).
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return New(gormDB), mock
}

func TestUpsertRun_CreatesNewRun(t *testing.T) {
	s, mock := newMockStore(t)

	req := domain.RunRequest{RunID: "run-1", Measures: []string{"PV"}, Scenarios: []string{"BASE"}}

	mock.ExpectQuery("SELECT \\* FROM `run`").
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `run`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := s.UpsertRun(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRun_IdempotentNoop(t *testing.T) {
	s, mock := newMockStore(t)

	req := domain.RunRequest{RunID: "run-1", Measures: []string{"PV"}, Scenarios: []string{"BASE"}}

	hash, err := canonicaljson.Hash(req)
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{"id", "run_id", "request_hash", "status", "payload", "created_at", "updated_at"}).
		AddRow(1, req.RunID, hash, domain.RunCreated, []byte(`{"run_id":"run-1"}`), time.Now(), time.Now())

	mock.ExpectQuery("SELECT \\* FROM `run`").WillReturnRows(rows)

	created, err := s.UpsertRun(context.Background(), req)
	assert.NoError(t, err)
	assert.False(t, created, "an existing matching run must not report as newly created")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRun_ConflictOnDifferentPayload(t *testing.T) {
	s, mock := newMockStore(t)

	req := domain.RunRequest{RunID: "run-1", Measures: []string{"PV"}, Scenarios: []string{"BASE"}}

	rows := sqlmock.NewRows([]string{"id", "run_id", "request_hash", "status", "payload", "created_at", "updated_at"}).
		AddRow(1, req.RunID, "deadbeef", domain.RunCreated, []byte(`{}`), time.Now(), time.Now())
	mock.ExpectQuery("SELECT \\* FROM `run`").WillReturnRows(rows)

	_, err := s.UpsertRun(context.Background(), req)
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Conflict", string(appErr.Kind))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimTasks_SelectsWithSkipLockedAndLeases(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `run_task` WHERE .* FOR UPDATE SKIP LOCKED").
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "product_type", "hash_bucket", "state", "attempts", "max_attempts", "leased_until", "leased_by", "last_error", "payload", "created_at", "updated_at"}).
			AddRow(7, "run-1", "FIXED_BOND", 0, domain.TaskQueued, 0, 3, nil, "", "", []byte(`{}`), time.Now(), time.Now()))
	mock.ExpectExec("UPDATE `run_task` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM `run_task` WHERE id IN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "product_type", "hash_bucket", "state", "attempts", "max_attempts", "leased_until", "leased_by", "last_error", "payload", "created_at", "updated_at"}).
			AddRow(7, "run-1", "FIXED_BOND", 0, domain.TaskLeased, 1, 3, time.Now(), "worker-1", "", []byte(`{}`), time.Now(), time.Now()))
	mock.ExpectCommit()

	claimed, err := s.ClaimTasks(context.Background(), "worker-1", 5, 60)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, domain.TaskLeased, claimed[0].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimTasks_NoneAvailable(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `run_task` WHERE .* FOR UPDATE SKIP LOCKED").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	claimed, err := s.ClaimTasks(context.Background(), "worker-1", 5, 60)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailTask_RequeuesWhenAttemptsRemain(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `run_task` WHERE .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "product_type", "hash_bucket", "state", "attempts", "max_attempts", "leased_until", "leased_by", "last_error", "payload", "created_at", "updated_at"}).
			AddRow(7, "run-1", "FIXED_BOND", 0, domain.TaskLeased, 1, 3, time.Now(), "worker-1", "", []byte(`{}`), time.Now(), time.Now()))
	mock.ExpectExec("UPDATE `run_task` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.FailTask(context.Background(), 7, "transient blip", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailTask_DeadLettersWhenAttemptsExhausted(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `run_task` WHERE .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "product_type", "hash_bucket", "state", "attempts", "max_attempts", "leased_until", "leased_by", "last_error", "payload", "created_at", "updated_at"}).
			AddRow(7, "run-1", "FIXED_BOND", 0, domain.TaskLeased, 3, 3, time.Now(), "worker-1", "", []byte(`{}`), time.Now(), time.Now()))
	mock.ExpectExec("UPDATE `run_task` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.FailTask(context.Background(), 7, "always fails", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDerivedStatus(t *testing.T) {
	assert.Equal(t, domain.RunCreated, DerivedStatus(domain.RunCreated, nil))
	assert.Equal(t, domain.RunRunning, DerivedStatus(domain.RunRunning, map[string]int64{}))
	assert.Equal(t, domain.RunCompleted, DerivedStatus(domain.RunRunning, map[string]int64{domain.TaskDone: 2}))
	assert.Equal(t, domain.RunFailed, DerivedStatus(domain.RunRunning, map[string]int64{domain.TaskDone: 1, domain.TaskFailed: 1}))
	assert.Equal(t, domain.RunRunning, DerivedStatus(domain.RunRunning, map[string]int64{domain.TaskDone: 1, domain.TaskQueued: 1}))
}
