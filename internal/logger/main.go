// Package logger initialises the global zerolog logger of the identity service.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelWriter implements a struct to split logs by info and error and up level.
// See func WriteLevel about the separation.
type LevelWriter struct {
	io.Writer
	ErrorWriter io.Writer
	InfoWriter  io.Writer
	TraceWriter io.Writer
	WarnWriter  io.Writer
}

// WriteLevel splits logging by level and links the pointer to the target output depending on the logger defined.
func (lw *LevelWriter) WriteLevel(l zerolog.Level, p []byte) (n int, err error) {
	var w io.Writer

	// disabled logging
	if l == zerolog.Disabled {
		return 0, nil
	}

	// decide where to write this log content
	switch {
	case l == zerolog.TraceLevel:
		w = lw.TraceWriter
	case l == zerolog.WarnLevel:
		w = lw.WarnWriter
	case l > zerolog.WarnLevel: // error and fatal panic go to error
		w = lw.ErrorWriter
	default:
		w = lw.InfoWriter // debug and info go to info
	}

	// return selected logger writer.
	return w.Write(p) //nolint:wrapcheck
}

// Init the zerolog logger.
// Depending on the config it enables all, some or no logger at all.
// Be sure to enable at least one logger for output.
func Init(cfg Log) error { //nolint:funlen
	var (
		logLevel, err = zerolog.ParseLevel(cfg.LogLevel)
		writers       []io.Writer
		stack         bool
	)

	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("loglevel %s is not supported", cfg.LogLevel))
	}

	if cfg.ServiceName == "" {
		return ErrServiceNameIsEmpty
	}

	if cfg.AppName == "" {
		return ErrAppNameIsEmpty
	}

	// use zerolog stack marshal func if trace level is set
	if logLevel == zerolog.TraceLevel {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack //nolint:reassign
		stack = true
	}

	zerolog.SetGlobalLevel(logLevel)

	// count statements per level
	hook := NewLevelCounterHook(cfg.ServiceName)

	// add the enabled only loggers
	if cfg.Console.Enabled {
		writers = append(writers, NewConsoleWriter(cfg))
	}

	if cfg.File.Enabled {
		fw, fileErr := newRollingInfoErrorFile(cfg)
		if fileErr != nil {
			return fileErr
		}

		writers = append(writers, fw)
	}

	mw := zerolog.MultiLevelWriter(writers...)

	zerolog.ErrorHandler = writeErrorHandler(cfg.ServiceName)

	lc := zerolog.New(mw).Hook(hook).With().Timestamp().Str("app", cfg.AppName)

	// decide what zero log should show
	switch {
	case cfg.ReportCaller && stack:
		lc = lc.Stack().Caller()
	case cfg.ReportCaller:
		lc = lc.Caller()
	}

	log.Logger = lc.Logger()

	return nil
}

// newRollingInfoErrorFile uses LevelWriter and lumberjack to create file based log.
func newRollingInfoErrorFile(cfg Log) (io.Writer, error) {
	if err := os.MkdirAll(cfg.File.Path, 0o750); err != nil { //nolint: mnd
		return nil, errors.Wrapf(err, "can't create log directory %s", cfg.File.Path)
	}

	return &LevelWriter{
		ErrorWriter: NewRollingFile(cfg.File.Path, cfg.File.Error),
		InfoWriter:  NewRollingFile(cfg.File.Path, cfg.File.Info),
		TraceWriter: NewRollingFile(cfg.File.Path, cfg.File.Trace),
		WarnWriter:  NewRollingFile(cfg.File.Path, cfg.File.Warn),
	}, nil
}

// NewRollingFile creates a lumberjack logger for the file f below dir.
func NewRollingFile(dir string, f RollingFile) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path.Join(dir, f.Name),
		MaxSize:    f.MaxSize,
		MaxAge:     f.MaxAge,
		MaxBackups: f.MaxBackups,
		LocalTime:  false,
		Compress:   f.Compress,
	}
}

// NewConsoleWriter creates the console writer: info and debug go to stdout, everything else to stderr.
func NewConsoleWriter(cfg Log) io.Writer {
	return &LevelWriter{
		ErrorWriter: consoleOut(os.Stderr, cfg.Console.UseConsoleWriter),
		InfoWriter:  consoleOut(os.Stdout, cfg.Console.UseConsoleWriter),
		TraceWriter: consoleOut(os.Stderr, cfg.Console.UseConsoleWriter),
		WarnWriter:  consoleOut(os.Stderr, cfg.Console.UseConsoleWriter),
	}
}

func consoleOut(out io.Writer, pretty bool) io.Writer {
	if !pretty {
		return out
	}

	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    false,
		TimeFormat: zerolog.TimeFieldFormat,
	}
}
