package cpustat

import (
	"time"

	"github.com/opd-ai/go-cpustat/internal/config"
	"github.com/opd-ai/go-cpustat/internal/monitor"
)

// Options configures a Client.
type Options struct {
	// Logger receives lifecycle and debug messages.
	// If nil, a logger built from the configuration's log section is used.
	Logger Logger

	// Metrics collects operational counters.
	// If nil, a fresh Metrics is created. Call Metrics.RegisterExpvar to
	// expose them at /debug/vars.
	Metrics *Metrics

	// Source overrides the counter backend selected by the configuration.
	// The Client does not close an injected source.
	Source monitor.CounterSource

	// Configure adjusts every configuration read from file, before it is
	// validated. Command line overrides go here so that they survive
	// reloads.
	Configure func(*config.Config) error

	// WatchConfig reloads the configuration file when it changes on disk.
	// It only applies to clients created with NewFromFile.
	WatchConfig bool

	// WatchDebounce sets the debounce interval for file change events.
	// Zero means use DefaultWatchDebounce.
	WatchDebounce time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{}
}

// Logger interface for custom logging.
// It follows the slog-style signature for compatibility with Go's structured logging.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}
