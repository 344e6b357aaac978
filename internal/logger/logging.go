// Package logger provides preconfigured charmbracelet/log loggers so every
// package tags its output with a consistent prefix.
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// New creates a default charm logger that respects the global log level.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a charm logger with custom options.
func NewWithConfig(prefix string, level log.Level, caller bool, timestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: timestamp,
		Formatter:       fmt,
	})
}
