package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned when Log.AppName, the app field of every entry, is missing.
	ErrAppNameIsEmpty = errors.New("log config: app name is required")

	// ErrServiceNameIsEmpty is returned when Log.ServiceName, the metrics service label, is missing.
	ErrServiceNameIsEmpty = errors.New("log config: service name is required")
)

// writeErrorHandler reports events zerolog failed to write on stderr and counts them for service.
func writeErrorHandler(service string) func(err error) {
	registerMetrics()

	return func(err error) {
		writeErrors.WithLabelValues(service).Inc()
		_, _ = fmt.Fprintf(os.Stderr, "identity logger: could not write event: %v\n", err)
	}
}
