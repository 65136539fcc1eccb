package config

import (
	"time"
)

// Default values for configuration options.
const (
	// DefaultSource is the default counter backend.
	DefaultSource = "local"
	// DefaultProcRoot is where Linux mounts the proc filesystem.
	DefaultProcRoot = "/proc"
	// DefaultDuration is the default sampling window (1 second).
	DefaultDuration = time.Second
	// DefaultSSHPort is the default remote SSH port.
	DefaultSSHPort = 22
	// DefaultRemoteTimeout bounds each remote read.
	DefaultRemoteTimeout = 5 * time.Second
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind:     DefaultSource,
			ProcRoot: DefaultProcRoot,
		},
		Sample: SampleConfig{
			Duration: DefaultDuration,
		},
		Remote: RemoteConfig{
			Port:     DefaultSSHPort,
			ProcRoot: DefaultProcRoot,
			Timeout:  DefaultRemoteTimeout,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		Output: OutputConfig{
			Format: OutputText,
		},
	}
}

// DefaultSampleConfig returns a SampleConfig with default values.
func DefaultSampleConfig() SampleConfig {
	return DefaultConfig().Sample
}

// DefaultRemoteConfig returns a RemoteConfig with default values.
func DefaultRemoteConfig() RemoteConfig {
	return DefaultConfig().Remote
}
