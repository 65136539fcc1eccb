// This file implements validation for configuration values.

package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
// It contains the field name and a description of the issue.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the results of a configuration validation.
type ValidationResult struct {
	// Errors contains all validation errors found.
	Errors []ValidationError
	// Warnings contains non-fatal issues.
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (vr *ValidationResult) IsValid() bool {
	return len(vr.Errors) == 0
}

// Error returns a combined error message if there are errors, nil otherwise.
func (vr *ValidationResult) Error() error {
	if len(vr.Errors) == 0 {
		return nil
	}

	messages := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		messages = append(messages, e.Error())
	}
	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}

// AddError adds a validation error.
func (vr *ValidationResult) AddError(field, message string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (vr *ValidationResult) AddWarning(field, message string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Message: message})
}

// Merge combines another ValidationResult into this one.
func (vr *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	vr.Errors = append(vr.Errors, other.Errors...)
	vr.Warnings = append(vr.Warnings, other.Warnings...)
}

// knownSources are the accepted Source.Kind values.
var knownSources = map[string]bool{
	"auto":     true,
	"local":    true,
	"remote":   true,
	"portable": true,
}

const (
	// minUsefulDuration is the window below which a tick-resolution counter
	// (100 Hz) usually has not advanced at all.
	minUsefulDuration = 10 * time.Millisecond
	// maxSensibleDuration is the window above which a report is unlikely to
	// be what the user intended.
	maxSensibleDuration = time.Hour
)

// Validator provides configuration validation.
type Validator struct {
	// strictMode turns warnings into errors.
	strictMode bool
}

// NewValidator creates a new Validator with default settings.
func NewValidator() *Validator {
	return &Validator{}
}

// WithStrictMode enables strict validation where warnings are errors.
func (v *Validator) WithStrictMode(strict bool) *Validator {
	v.strictMode = strict
	return v
}

// Validate performs validation of a Config.
func (v *Validator) Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	v.validateSource(&cfg.Source, result)
	v.validateSample(&cfg.Sample, result)
	if cfg.Source.Kind == "remote" {
		v.validateRemote(&cfg.Remote, result)
	}
	v.validateLog(&cfg.Log, result)
	v.validateOutput(&cfg.Output, result)
	v.validateMetrics(&cfg.Metrics, result)

	if v.strictMode {
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = nil
	}
	return result
}

func (v *Validator) validateSource(sc *SourceConfig, result *ValidationResult) {
	if !knownSources[sc.Kind] {
		result.AddError("source.kind",
			fmt.Sprintf("unknown source %q (want auto, local, remote or portable)", sc.Kind))
	}
	if sc.ProcRoot == "" {
		result.AddError("source.proc_root", "must not be empty")
	} else if !filepath.IsAbs(sc.ProcRoot) {
		result.AddWarning("source.proc_root",
			fmt.Sprintf("relative path %q is resolved against the working directory", sc.ProcRoot))
	}
}

func (v *Validator) validateSample(sc *SampleConfig, result *ValidationResult) {
	switch {
	case sc.Duration <= 0:
		result.AddError("sample.duration", fmt.Sprintf("must be positive, got %v", sc.Duration))
	case sc.Duration < minUsefulDuration:
		result.AddWarning("sample.duration",
			fmt.Sprintf("%v is shorter than a clock tick on most kernels and may yield insufficient samples", sc.Duration))
	case sc.Duration > maxSensibleDuration:
		result.AddWarning("sample.duration", fmt.Sprintf("unusually long window %v", sc.Duration))
	}

	if sc.Interval < 0 {
		result.AddError("sample.interval", fmt.Sprintf("must be non-negative, got %v", sc.Interval))
	}
	if sc.Count < 0 {
		result.AddError("sample.count", fmt.Sprintf("must be non-negative, got %d", sc.Count))
	}
}

func (v *Validator) validateRemote(rc *RemoteConfig, result *ValidationResult) {
	if rc.Host == "" {
		result.AddError("remote.host", "required when source is remote")
	}
	if rc.User == "" {
		result.AddError("remote.user", "required when source is remote")
	}
	if rc.Port < 1 || rc.Port > 65535 {
		result.AddError("remote.port", fmt.Sprintf("must be between 1 and 65535, got %d", rc.Port))
	}
	if rc.Password == "" && rc.IdentityFile == "" && !rc.UseAgent {
		result.AddError("remote.auth", "set a password, an identity file or enable the agent")
	}
	if rc.Passphrase != "" && rc.IdentityFile == "" {
		result.AddWarning("remote.passphrase", "ignored without an identity file")
	}
	if !strings.HasPrefix(rc.ProcRoot, "/") {
		result.AddError("remote.proc_root", fmt.Sprintf("must be an absolute path, got %q", rc.ProcRoot))
	}
	if rc.Timeout < 0 {
		result.AddError("remote.timeout", fmt.Sprintf("must be non-negative, got %v", rc.Timeout))
	}
	if rc.Insecure {
		result.AddWarning("remote.insecure", "host key verification is disabled")
	}
}

func (v *Validator) validateLog(lc *LogConfig, result *ValidationResult) {
	if lc.Level < LogLevelInfo || lc.Level > LogLevelError {
		result.AddError("log.level", fmt.Sprintf("unknown log level: %d", lc.Level))
	}
	if lc.Format < LogFormatText || lc.Format > LogFormatJSON {
		result.AddError("log.format", fmt.Sprintf("unknown log format: %d", lc.Format))
	}
}

func (v *Validator) validateOutput(oc *OutputConfig, result *ValidationResult) {
	if oc.Format < OutputText || oc.Format > OutputJSON {
		result.AddError("output.format", fmt.Sprintf("unknown output format: %d", oc.Format))
	}
}

func (v *Validator) validateMetrics(mc *MetricsConfig, result *ValidationResult) {
	if mc.Address == "" {
		return
	}
	if _, _, err := net.SplitHostPort(mc.Address); err != nil {
		result.AddError("metrics.address", fmt.Sprintf("invalid listen address %q: %v", mc.Address, err))
	}
}

// ValidateConfig is a convenience function to validate a Config with default settings.
// Returns nil if the config is valid, or an error describing validation failures.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	return NewValidator().Validate(cfg).Error()
}

// ValidateConfigStrict validates a Config with warnings treated as errors.
func ValidateConfigStrict(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	return NewValidator().WithStrictMode(true).Validate(cfg).Error()
}
