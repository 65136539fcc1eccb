// This file implements conversion of a Config back into the Lua and legacy
// file formats, for --print-config and for migrating between formats.

package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Migrator renders a Config in the Lua or legacy key/value format.
type Migrator struct {
	// includeComments adds explanatory comments to the output.
	includeComments bool
	// preserveDefaults includes settings even when they match defaults.
	preserveDefaults bool
}

// MigratorOption is a functional option for configuring a Migrator.
type MigratorOption func(*Migrator)

// WithComments enables adding explanatory comments to the output.
func WithComments(include bool) MigratorOption {
	return func(m *Migrator) {
		m.includeComments = include
	}
}

// WithDefaults includes settings that match default values in the output.
func WithDefaults(preserve bool) MigratorOption {
	return func(m *Migrator) {
		m.preserveDefaults = preserve
	}
}

// NewMigrator creates a new Migrator with the given options.
func NewMigrator(opts ...MigratorOption) *Migrator {
	m := &Migrator{
		includeComments:  true,
		preserveDefaults: false,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// setting is one flat key with its rendered value.
type setting struct {
	key   string
	value any // string, bool, int or time.Duration
}

// settings flattens cfg into the keys understood by applySetting, skipping
// values equal to the defaults unless preserveDefaults is set.
func (m *Migrator) settings(cfg *Config) []setting {
	d := DefaultConfig()
	var out []setting
	add := func(key string, value, def any) {
		if m.preserveDefaults || value != def {
			out = append(out, setting{key, value})
		}
	}

	add("source", cfg.Source.Kind, d.Source.Kind)
	add("proc_root", cfg.Source.ProcRoot, d.Source.ProcRoot)
	add("duration", cfg.Sample.Duration, d.Sample.Duration)
	add("interval", cfg.Sample.Interval, d.Sample.Interval)
	add("count", cfg.Sample.Count, d.Sample.Count)
	add("remote_host", cfg.Remote.Host, d.Remote.Host)
	add("remote_port", cfg.Remote.Port, d.Remote.Port)
	add("remote_user", cfg.Remote.User, d.Remote.User)
	add("remote_password", cfg.Remote.Password, d.Remote.Password)
	add("remote_identity", cfg.Remote.IdentityFile, d.Remote.IdentityFile)
	add("remote_passphrase", cfg.Remote.Passphrase, d.Remote.Passphrase)
	add("remote_agent", cfg.Remote.UseAgent, d.Remote.UseAgent)
	add("remote_known_hosts", cfg.Remote.KnownHosts, d.Remote.KnownHosts)
	add("remote_insecure", cfg.Remote.Insecure, d.Remote.Insecure)
	add("remote_proc_root", cfg.Remote.ProcRoot, d.Remote.ProcRoot)
	add("remote_timeout", cfg.Remote.Timeout, d.Remote.Timeout)
	add("log_level", cfg.Log.Level.String(), d.Log.Level.String())
	add("log_format", cfg.Log.Format.String(), d.Log.Format.String())
	add("output", cfg.Output.Format.String(), d.Output.Format.String())
	add("metrics_address", cfg.Metrics.Address, d.Metrics.Address)
	return out
}

// MigrateToLua converts a Config to the Lua configuration format.
func (m *Migrator) MigrateToLua(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	var buf bytes.Buffer
	if m.includeComments {
		buf.WriteString("-- go-cpustat Lua configuration\n")
		buf.WriteString("-- Durations are in seconds.\n\n")
	}

	fmt.Fprintf(&buf, "%s.config = {\n", luaGlobal)
	for _, s := range m.settings(cfg) {
		fmt.Fprintf(&buf, "    %s = %s,\n", s.key, luaLiteral(s.value))
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// MigrateToLegacy converts a Config to the key/value format.
func (m *Migrator) MigrateToLegacy(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	var buf bytes.Buffer
	if m.includeComments {
		buf.WriteString("# go-cpustat configuration\n")
		buf.WriteString("# Durations are in seconds.\n\n")
	}
	for _, s := range m.settings(cfg) {
		if s.value == "" {
			// A bare key reads back as a true boolean.
			continue
		}
		fmt.Fprintf(&buf, "%s %s\n", s.key, legacyLiteral(s.value))
	}
	return buf.Bytes(), nil
}

// Marshal renders cfg in format.
func (m *Migrator) Marshal(cfg *Config, format Format) ([]byte, error) {
	switch format {
	case FormatLua:
		return m.MigrateToLua(cfg)
	case FormatLegacy:
		return m.MigrateToLegacy(cfg)
	case FormatYAML:
		return MarshalYAML(cfg)
	default:
		return nil, fmt.Errorf("unknown format: %s (expected 'lua', 'yaml' or 'legacy')", format)
	}
}

func luaLiteral(v any) string {
	switch v := v.(type) {
	case string:
		escaped := strings.ReplaceAll(v, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, "'", `\'`)
		return "'" + escaped + "'"
	case time.Duration:
		return formatSeconds(v)
	default:
		return fmt.Sprint(v)
	}
}

func legacyLiteral(v any) string {
	switch v := v.(type) {
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case time.Duration:
		return formatSeconds(v)
	default:
		return fmt.Sprint(v)
	}
}

// formatSeconds writes d with minimal decimal places, always as a number
// so Lua reads it back as one.
func formatSeconds(d time.Duration) string {
	s := d.Seconds()
	if s == float64(int64(s)) {
		return strconv.FormatFloat(s, 'f', 1, 64)
	}
	return strconv.FormatFloat(s, 'g', -1, 64)
}

// MigrateFile reads a configuration file in any supported format and
// renders it in format.
func MigrateFile(path string, format Format, opts ...MigratorOption) ([]byte, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	defer p.Close()

	cfg, err := p.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return NewMigrator(opts...).Marshal(cfg, format)
}

// MigrateLegacyContent converts key/value content to Lua format.
func MigrateLegacyContent(content []byte, opts ...MigratorOption) ([]byte, error) {
	cfg, err := NewLegacyParser().Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse legacy config: %w", err)
	}
	return NewMigrator(opts...).MigrateToLua(cfg)
}
