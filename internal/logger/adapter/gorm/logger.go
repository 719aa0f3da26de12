// Package gorm routes gorm statement logging into zerolog.
package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowThreshold marks statements logged at warn level.
const DefaultSlowThreshold = 200 * time.Millisecond

// Logger implements gorm's logger.Interface on top of a zerolog logger.
type Logger struct {
	// Logger is the target logger. The global zerolog logger is used when nil.
	Logger *zerolog.Logger
	// LogLevel is the gorm log level.
	LogLevel gormlogger.LogLevel
	// SlowThreshold is the duration after which statements are logged as slow.
	SlowThreshold time.Duration
	// LogStatements logs every statement at debug level.
	LogStatements bool
}

// New creates a gorm logger writing to the global zerolog logger.
func New(logStatements bool) *Logger {
	return &Logger{
		LogLevel:      gormlogger.Warn,
		SlowThreshold: DefaultSlowThreshold,
		LogStatements: logStatements,
	}
}

func (l *Logger) logger() *zerolog.Logger {
	if l.Logger != nil {
		return l.Logger
	}

	return &log.Logger
}

// LogMode implements logger.Interface.
func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.LogLevel = level

	return &clone
}

// Info implements logger.Interface.
func (l *Logger) Info(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Info {
		l.logger().Info().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Warn implements logger.Interface.
func (l *Logger) Warn(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Warn {
		l.logger().Warn().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Error implements logger.Interface.
func (l *Logger) Error(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Error {
		l.logger().Error().Str("component", "gorm").Msgf(msg, data...)
	}
}

// Trace implements logger.Interface.
// Record not found errors are expected by the repositories and are not logged as errors.
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	var event *zerolog.Event

	switch {
	case err != nil && l.LogLevel >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		event = l.logger().Error().Err(err)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.LogLevel >= gormlogger.Warn:
		event = l.logger().Warn().Dur("slowThreshold", l.SlowThreshold)
	case l.LogStatements:
		event = l.logger().Debug()
	default:
		return
	}

	sql, rows := fc()
	event.Str("component", "gorm").Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("sql")
}
