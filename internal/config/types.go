// Package config provides configuration data structures for go-cpustat.
// It defines the settings shared by the Lua, legacy key/value and YAML
// configuration formats, enabling parsing and validation of sampler
// configurations.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete go-cpustat configuration.
type Config struct {
	// Source selects where counters are read from.
	Source SourceConfig
	// Sample contains sampling window settings.
	Sample SampleConfig
	// Remote contains SSH settings for the remote source.
	Remote RemoteConfig
	// Log contains logging settings.
	Log LogConfig
	// Output contains report formatting settings.
	Output OutputConfig
	// Metrics contains the metrics endpoint settings.
	Metrics MetricsConfig
}

// SourceConfig selects the counter backend.
type SourceConfig struct {
	// Kind is one of auto, local, remote or portable.
	Kind string
	// ProcRoot is the local proc mount point.
	ProcRoot string
}

// SampleConfig holds sampling window settings.
type SampleConfig struct {
	// Duration is the wall-clock wait between the two counter reads.
	Duration time.Duration
	// Interval is the pause between consecutive windows in watch mode.
	// Zero starts the next window immediately.
	Interval time.Duration
	// Count limits the number of windows in watch mode. Zero means no limit.
	Count int
}

// RemoteConfig holds SSH settings for reading a remote host's counters.
type RemoteConfig struct {
	// Host is the hostname or IP address.
	Host string
	// Port is the SSH port.
	Port int
	// User is the SSH username.
	User string
	// Password enables password authentication when set.
	Password string
	// IdentityFile enables key authentication when set.
	IdentityFile string
	// Passphrase decrypts IdentityFile.
	Passphrase string
	// UseAgent enables ssh-agent authentication.
	UseAgent bool
	// KnownHosts is the known_hosts file used to verify the host key.
	KnownHosts string
	// Insecure disables host key verification.
	Insecure bool
	// ProcRoot is the proc mount point on the remote host.
	ProcRoot string
	// Timeout bounds each remote read.
	Timeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum level that is logged.
	Level LogLevel
	// Format selects text or JSON log lines.
	Format LogFormat
}

// OutputConfig holds report formatting settings.
type OutputConfig struct {
	// Format selects the report format.
	Format OutputFormat
}

// MetricsConfig holds the metrics endpoint settings.
type MetricsConfig struct {
	// Address is the listen address for /metrics and /debug/vars.
	// Empty disables the endpoint.
	Address string
}

// LogLevel is the minimum severity that is logged.
type LogLevel int

const (
	// LogLevelInfo logs lifecycle events.
	LogLevelInfo LogLevel = iota
	// LogLevelDebug also logs every counter read.
	LogLevelDebug
	// LogLevelWarn logs only problems.
	LogLevelWarn
	// LogLevelError logs only failures.
	LogLevelError
)

// String returns the string representation of a LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// LogFormat selects the log line encoding.
type LogFormat int

const (
	// LogFormatText writes key=value log lines.
	LogFormatText LogFormat = iota
	// LogFormatJSON writes one JSON object per line.
	LogFormatJSON
)

// String returns the string representation of a LogFormat.
func (f LogFormat) String() string {
	switch f {
	case LogFormatText:
		return "text"
	case LogFormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseLogFormat parses a string into a LogFormat.
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return LogFormatText, nil
	case "json":
		return LogFormatJSON, nil
	default:
		return LogFormatText, fmt.Errorf("unknown log format: %s", s)
	}
}

// OutputFormat selects how reports are printed.
type OutputFormat int

const (
	// OutputText prints the human readable report.
	OutputText OutputFormat = iota
	// OutputJSON prints one JSON document per report.
	OutputJSON
)

// String returns the string representation of an OutputFormat.
func (f OutputFormat) String() string {
	switch f {
	case OutputText:
		return "text"
	case OutputJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseOutputFormat parses a string into an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return OutputText, fmt.Errorf("unknown output format: %s", s)
	}
}

// Validate checks if the Config has valid values using the comprehensive validator.
// For detailed validation results including warnings, use NewValidator().Validate().
func (c *Config) Validate() error {
	return ValidateConfig(c)
}
