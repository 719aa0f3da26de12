package logger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// collectors are registered once, Init runs repeatedly in tests.
var (
	metricsOnce sync.Once              //nolint:gochecknoglobals
	statements  *prometheus.CounterVec //nolint:gochecknoglobals
	writeErrors *prometheus.CounterVec //nolint:gochecknoglobals
)

func registerMetrics() {
	metricsOnce.Do(func() {
		statements = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "identity",
				Subsystem: "log",
				Name:      "statements_total",
				Help:      "Number of log statements of the identity service by level.",
			},
			[]string{"service", "level"},
		)

		writeErrors = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "identity",
				Subsystem: "log",
				Name:      "write_errors_total",
				Help:      "Number of log events the identity service could not write.",
			},
			[]string{"service"},
		)
	})
}

// LevelCounterHook counts the log statements of a service per level for the metrics endpoint.
type LevelCounterHook struct {
	service string
}

// NewLevelCounterHook creates the hook for the service named in Log.ServiceName.
func NewLevelCounterHook(service string) LevelCounterHook {
	registerMetrics()

	return LevelCounterHook{service: service}
}

// Run implements zerolog.Hook.
func (h LevelCounterHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	statements.WithLabelValues(h.service, level.String()).Inc()
}
