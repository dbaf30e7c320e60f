// Package audit persists a write-only log of control loop iterations to
// SQLite via gorm, for operators to inspect after the fact. Nothing in
// this repo ever reads the audit trail back into the control loop: the
// loop remains stateless across iterations regardless of what's recorded
// here.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/laddermaker/ladderbot/internal/control"
)

// IterationRecord is one row of the audit trail: a summary of a single
// control loop iteration.
type IterationRecord struct {
	ID          uint `gorm:"primaryKey;autoIncrement"`
	Timestamp   time.Time
	LatestPrice uint64
	TargetCount int
	MadeCount   int
	CancelCount int
	Error       string `gorm:"index"`
}

// Log is a gorm-backed, append-only audit trail. It implements
// internal/control.Recorder.
type Log struct {
	db *gorm.DB
}

// Open opens (creating if needed) a SQLite-backed audit log under dataDir.
func Open(dataDir string) (*Log, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "audit.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := db.AutoMigrate(&IterationRecord{}); err != nil {
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	return &Log{db: db}, nil
}

// RecordIteration writes one row per call. It never deletes or updates
// existing rows.
func (l *Log) RecordIteration(ctx context.Context, result control.IterationResult) error {
	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	record := IterationRecord{
		Timestamp:   result.Timestamp,
		LatestPrice: result.Stats.LatestPrice,
		TargetCount: len(result.Target),
		MadeCount:   len(result.Made),
		CancelCount: len(result.Cancelled),
		Error:       errMsg,
	}

	return l.db.WithContext(ctx).Create(&record).Error
}

// Recent returns the most recent count iteration records, newest first,
// for the status surface to display. It is never consulted by the
// control loop.
func (l *Log) Recent(ctx context.Context, count int) ([]IterationRecord, error) {
	var records []IterationRecord
	err := l.db.WithContext(ctx).Order("id desc").Limit(count).Find(&records).Error
	return records, err
}
