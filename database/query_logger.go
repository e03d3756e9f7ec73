package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SlowQueryLogger is a GORM logger that reports errors and slow
// statements through slog and stays quiet otherwise.
type SlowQueryLogger struct {
	threshold time.Duration
	log       *slog.Logger
}

// NewSlowQueryLogger creates a query logger with the given slow-query threshold
func NewSlowQueryLogger(threshold time.Duration) *SlowQueryLogger {
	return &SlowQueryLogger{
		threshold: threshold,
		log:       slog.Default().With("component", "database"),
	}
}

// LogMode implements logger.Interface
func (l *SlowQueryLogger) LogMode(logger.LogLevel) logger.Interface {
	return l
}

// Info implements logger.Interface
func (l *SlowQueryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.log.Info(msg, "args", args)
}

// Warn implements logger.Interface
func (l *SlowQueryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.log.Warn(msg, "args", args)
}

// Error implements logger.Interface
func (l *SlowQueryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.log.Error(msg, "args", args)
}

// Trace implements logger.Interface
func (l *SlowQueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed >= l.threshold:
		sql, rows := fc()
		l.log.Warn("slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
