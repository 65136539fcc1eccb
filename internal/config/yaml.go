// This file implements the YAML configuration format.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk YAML layout. Settings are grouped by section
// instead of prefixed like the flat Lua and legacy keys.
type yamlDocument struct {
	Source struct {
		Kind     string `yaml:"kind"`
		ProcRoot string `yaml:"proc_root"`
	} `yaml:"source"`
	Sample struct {
		Duration yamlDuration `yaml:"duration"`
		Interval yamlDuration `yaml:"interval"`
		Count    int          `yaml:"count"`
	} `yaml:"sample"`
	Remote struct {
		Host         string       `yaml:"host,omitempty"`
		Port         int          `yaml:"port"`
		User         string       `yaml:"user,omitempty"`
		Password     string       `yaml:"password,omitempty"`
		IdentityFile string       `yaml:"identity,omitempty"`
		Passphrase   string       `yaml:"passphrase,omitempty"`
		UseAgent     bool         `yaml:"agent,omitempty"`
		KnownHosts   string       `yaml:"known_hosts,omitempty"`
		Insecure     bool         `yaml:"insecure,omitempty"`
		ProcRoot     string       `yaml:"proc_root"`
		Timeout      yamlDuration `yaml:"timeout"`
	} `yaml:"remote"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Output struct {
		Format string `yaml:"format"`
	} `yaml:"output"`
	Metrics struct {
		Address string `yaml:"address,omitempty"`
	} `yaml:"metrics"`
}

// yamlDuration accepts "1.5" (seconds) or "1500ms" and is written back in
// Go duration syntax.
type yamlDuration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *yamlDuration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	v, err := parseSeconds(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	*d = yamlDuration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d yamlDuration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// YAMLParser parses YAML configuration files.
type YAMLParser struct{}

// NewYAMLParser creates a new YAMLParser instance.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Parse parses a YAML configuration. Keys that are not part of the layout
// are rejected so that typos do not silently fall back to defaults.
func (p *YAMLParser) Parse(content []byte) (*Config, error) {
	doc := newYAMLDocument(DefaultConfig())

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	return doc.config()
}

// MarshalYAML renders cfg in the YAML layout.
func MarshalYAML(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(newYAMLDocument(*cfg)); err != nil {
		return nil, fmt.Errorf("failed to encode YAML configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newYAMLDocument(cfg Config) yamlDocument {
	var doc yamlDocument
	doc.Source.Kind = cfg.Source.Kind
	doc.Source.ProcRoot = cfg.Source.ProcRoot
	doc.Sample.Duration = yamlDuration(cfg.Sample.Duration)
	doc.Sample.Interval = yamlDuration(cfg.Sample.Interval)
	doc.Sample.Count = cfg.Sample.Count
	doc.Remote.Host = cfg.Remote.Host
	doc.Remote.Port = cfg.Remote.Port
	doc.Remote.User = cfg.Remote.User
	doc.Remote.Password = cfg.Remote.Password
	doc.Remote.IdentityFile = cfg.Remote.IdentityFile
	doc.Remote.Passphrase = cfg.Remote.Passphrase
	doc.Remote.UseAgent = cfg.Remote.UseAgent
	doc.Remote.KnownHosts = cfg.Remote.KnownHosts
	doc.Remote.Insecure = cfg.Remote.Insecure
	doc.Remote.ProcRoot = cfg.Remote.ProcRoot
	doc.Remote.Timeout = yamlDuration(cfg.Remote.Timeout)
	doc.Log.Level = cfg.Log.Level.String()
	doc.Log.Format = cfg.Log.Format.String()
	doc.Output.Format = cfg.Output.Format.String()
	doc.Metrics.Address = cfg.Metrics.Address
	return doc
}

func (doc *yamlDocument) config() (*Config, error) {
	cfg := Config{
		Source: SourceConfig{
			Kind:     doc.Source.Kind,
			ProcRoot: doc.Source.ProcRoot,
		},
		Sample: SampleConfig{
			Duration: time.Duration(doc.Sample.Duration),
			Interval: time.Duration(doc.Sample.Interval),
			Count:    doc.Sample.Count,
		},
		Remote: RemoteConfig{
			Host:         doc.Remote.Host,
			Port:         doc.Remote.Port,
			User:         doc.Remote.User,
			Password:     doc.Remote.Password,
			IdentityFile: doc.Remote.IdentityFile,
			Passphrase:   doc.Remote.Passphrase,
			UseAgent:     doc.Remote.UseAgent,
			KnownHosts:   doc.Remote.KnownHosts,
			Insecure:     doc.Remote.Insecure,
			ProcRoot:     doc.Remote.ProcRoot,
			Timeout:      time.Duration(doc.Remote.Timeout),
		},
		Metrics: MetricsConfig{Address: doc.Metrics.Address},
	}

	var err error
	if cfg.Log.Level, err = ParseLogLevel(doc.Log.Level); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.Format, err = ParseLogFormat(doc.Log.Format); err != nil {
		return nil, fmt.Errorf("log.format: %w", err)
	}
	if cfg.Output.Format, err = ParseOutputFormat(doc.Output.Format); err != nil {
		return nil, fmt.Errorf("output.format: %w", err)
	}
	return &cfg, nil
}
