// Package-level logging infrastructure for database operations, including a
// GORM logger adapter that routes query logs through slog.
package datastore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/logging"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is
// considered slow. One second accommodates large publish transactions while
// still flagging queries that need optimization.
const DefaultSlowQueryThreshold = 1 * time.Second

var (
	datastoreLogger *slog.Logger
	loggerOnce      sync.Once
	loggerMu        sync.RWMutex
)

// getLogger returns the package logger, falling back to the default slog
// logger before logging has been initialized.
func getLogger() *slog.Logger {
	loggerMu.RLock()
	if datastoreLogger != nil {
		defer loggerMu.RUnlock()
		return datastoreLogger
	}
	loggerMu.RUnlock()

	loggerOnce.Do(func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		if l := logging.ForService("datastore"); l != nil {
			datastoreLogger = l
		} else {
			datastoreLogger = slog.Default().With("service", "datastore")
		}
	})

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return datastoreLogger
}

// SetLogger overrides the package logger, e.g. to attach a rotating file
// logger created with logging.NewFileLogger.
func SetLogger(l *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	datastoreLogger = l
}

// createGormLogger configures and returns a GORM logger instance backed by
// the package slog logger.
func createGormLogger() gormlogger.Interface {
	return &slogGormLogger{
		slowThreshold: DefaultSlowQueryThreshold,
		level:         gormlogger.Warn,
	}
}

// slogGormLogger adapts slog to gorm's logger.Interface.
type slogGormLogger struct {
	slowThreshold time.Duration
	level         gormlogger.LogLevel
}

func (l *slogGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *slogGormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		getLogger().InfoContext(ctx, msg, "args", args)
	}
}

func (l *slogGormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		getLogger().WarnContext(ctx, msg, "args", args)
	}
}

func (l *slogGormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		getLogger().ErrorContext(ctx, msg, "args", args)
	}
}

func (l *slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !isExpectedTraceError(err):
		sql, rows := fc()
		getLogger().ErrorContext(ctx, "query failed",
			"error", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		getLogger().WarnContext(ctx, "slow query",
			"sql", sql, "rows", rows, "elapsed", elapsed, "threshold", l.slowThreshold)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		getLogger().InfoContext(ctx, "query",
			"sql", sql, "rows", rows, "elapsed", elapsed)
	}
}

// isExpectedTraceError filters record-not-found from error-level query
// logging; lookups for absent rows are normal flow here.
func isExpectedTraceError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
