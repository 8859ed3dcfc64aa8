package store

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps a *gorm.DB and implements every durable operation riskbatch
// needs: snapshot/run/task/result CRUD plus the lease-claim protocol.
// Mirrors the teacher's MySQLRecorder shape (internal/db/transaction_recorder.go):
// a single struct holding *gorm.DB, constructed via a DSN or an existing
// *gorm.DB (the latter used by tests with sqlmock).
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and auto-migrates every model.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-open *gorm.DB without migrating, for unit tests
// backed by go-sqlmock where AutoMigrate's introspection queries are not
// worth stubbing.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping verifies connectivity for the /health endpoint (spec §6).
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the underlying *gorm.DB for queries outside this package,
// matching the teacher's GetDB() escape hatch.
func (s *Store) DB() *gorm.DB { return s.db }
