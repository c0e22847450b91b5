package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storetrail/storetrail-backend/pkg/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// queryLog routes GORM's statement tracing into the service logger. Failed
// statements are logged as errors and slow ones as warnings; everything else
// is dropped. Missing rows are an expected outcome and never logged.
type queryLog struct {
	log  *logger.Logger
	slow time.Duration
	mode gormlogger.LogLevel
}

func newQueryLog(log *logger.Logger, slow time.Duration) gormlogger.Interface {
	if log == nil {
		return gormlogger.Discard
	}
	return &queryLog{log: log, slow: slow, mode: gormlogger.Warn}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *q
	next.mode = level
	return &next
}

func (q *queryLog) Info(ctx context.Context, msg string, _ ...any) {
	if q.mode >= gormlogger.Info {
		q.log.Info(ctx, "gorm: "+msg)
	}
}

func (q *queryLog) Warn(ctx context.Context, msg string, _ ...any) {
	if q.mode >= gormlogger.Warn {
		q.log.Warn(ctx, "gorm: "+msg)
	}
}

func (q *queryLog) Error(ctx context.Context, msg string, _ ...any) {
	if q.mode >= gormlogger.Error {
		q.log.Error(ctx, "gorm: "+msg, nil)
	}
}

func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.mode <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow
	if !failed && !(slow && q.mode >= gormlogger.Warn) {
		return
	}

	sql, rows := fc()
	ctx = q.log.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if failed {
		q.log.Error(ctx, "db.query_failed", err)
		return
	}
	q.log.Warn(ctx, "db.query_slow")
}
