// Package fiber provides the zerolog access log middleware of the webserver.
package fiber

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/lobkit/identity/internal/logger"
)

// Config implements fiber middleware struct.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	//
	// Optional. Default: nil
	Next func(c fiber.Ctx) bool

	// Config of the logger.
	Config logger.Log

	// ErrorHandler renders chain errors before the access log entry is written,
	// so the logged status is the one the client receives.
	//
	// Optional. Default: fiber.DefaultErrorHandler
	ErrorHandler fiber.ErrorHandler

	// CacheControlError is set as Cache-Control header on responses of failed chains.
	CacheControlError string

	// CheckAliveURI for disabling logging of check alive http calls.
	CheckAliveURI string

	// Output overrides the writers derived from Config.
	Output io.Writer
}

// ConfigDefault is the default config for fiber.
var ConfigDefault = Config{
	Next:              nil,
	ErrorHandler:      fiber.DefaultErrorHandler,
	CacheControlError: "max-age=0",
	CheckAliveURI:     "/checkalive",
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ConfigDefault.ErrorHandler
	}

	if cfg.CacheControlError == "" {
		cfg.CacheControlError = ConfigDefault.CacheControlError
	}

	if cfg.CheckAliveURI == "" {
		cfg.CheckAliveURI = ConfigDefault.CheckAliveURI
	}

	return cfg
}

// New creates a new fiber access logging middleware using zerolog.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)
	out := cfg.Output

	if out == nil {
		out = accessWriter(&cfg.Config)
	}

	accessLogger := zerolog.New(out).With().Timestamp().Logger().Level(zerolog.NoLevel)

	return func(c fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()

		chainErr := c.Next()
		if chainErr != nil {
			if err := cfg.ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError) //nolint:errcheck // ok here
			}

			c.Set(fiber.HeaderCacheControl, cfg.CacheControlError)
		}

		elapsed := time.Since(start).Seconds()
		c.Set("X-Performance", strconv.FormatFloat(elapsed, 'f', 6, 64))

		if cfg.Config.DisableCheckAlive && c.Path() == cfg.CheckAliveURI {
			return nil
		}

		// the original, non normalized request path including its query string
		uri := string(c.Request().RequestURI())

		entry := accessLogger.Log().
			Str("IP", c.IP()).
			Int("status", c.Response().StatusCode()).
			Float64("X-Performance", elapsed).
			Str("URI", uri).
			Str("method", c.Method()).
			Str("host", c.Hostname()).
			Str(fiber.HeaderXForwardedFor, c.Get(fiber.HeaderXForwardedFor)).
			Str(fiber.HeaderUserAgent, c.Get(fiber.HeaderUserAgent)).
			Str(fiber.HeaderReferer, c.Get(fiber.HeaderReferer))

		if username, ok := c.Locals("username").(string); ok && username != "" {
			entry.Str("username", username)
		}

		if chainErr != nil {
			entry.Err(chainErr)
		}

		entry.Send()

		return nil
	}
}

// accessWriter builds the access log writers enabled by cfg.
func accessWriter(cfg *logger.Log) io.Writer {
	var writers []io.Writer

	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.File.Path, 0o750); err == nil {
			writers = append(writers, logger.NewRollingFile(cfg.File.Path, cfg.File.Access))
		}
	}

	// console access log needs both the console logger and the access log switch
	if cfg.Console.Enabled && cfg.EnableAccessLogToConsole {
		if cfg.Console.UseConsoleWriter {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:          os.Stdout,
				TimeFormat:   zerolog.TimeFieldFormat,
				PartsExclude: []string{"level"},
			})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	return zerolog.MultiLevelWriter(writers...)
}
