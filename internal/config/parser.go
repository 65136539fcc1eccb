// This file implements the unified parser that auto-detects the configuration format.

package config

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Format identifies a configuration file syntax.
type Format string

const (
	FormatLua    Format = "lua"
	FormatLegacy Format = "legacy"
	FormatYAML   Format = "yaml"
)

// Parser provides a unified interface for parsing configuration files.
// It detects whether a file uses the Lua, YAML or legacy key/value format.
type Parser struct {
	legacyParser *LegacyParser
	luaParser    *LuaConfigParser
	yamlParser   *YAMLParser
}

// NewParser creates a new Parser that can handle every supported format.
func NewParser() (*Parser, error) {
	luaParser, err := NewLuaConfigParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create Lua parser: %w", err)
	}

	return &Parser{
		legacyParser: NewLegacyParser(),
		luaParser:    luaParser,
		yamlParser:   NewYAMLParser(),
	}, nil
}

// ParseFile reads and parses a configuration file. Files named *.yaml or
// *.yml are parsed as YAML and *.lua as Lua; anything else is detected
// from its content.
func (p *Parser) ParseFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if format, ok := formatFromExtension(path); ok {
		return p.ParseFormat(content, format)
	}
	return p.Parse(content)
}

// Parse parses configuration content, auto-detecting the format.
func (p *Parser) Parse(content []byte) (*Config, error) {
	return p.ParseFormat(content, DetectFormat(content))
}

// ParseFormat parses content in the given format.
func (p *Parser) ParseFormat(content []byte, format Format) (*Config, error) {
	switch format {
	case FormatLua:
		return p.luaParser.Parse(content)
	case FormatYAML:
		return p.yamlParser.Parse(content)
	case FormatLegacy:
		return p.legacyParser.Parse(content)
	default:
		return nil, fmt.Errorf("unknown format: %s (expected 'lua', 'yaml' or 'legacy')", format)
	}
}

// ParseFromFS reads and parses a configuration file from an embedded filesystem.
func (p *Parser) ParseFromFS(fsys fs.FS, path string) (*Config, error) {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS %s: %w", path, err)
	}

	if format, ok := formatFromExtension(path); ok {
		return p.ParseFormat(content, format)
	}
	return p.Parse(content)
}

// ParseReader parses configuration from an io.Reader in the given format.
func (p *Parser) ParseReader(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return p.ParseFormat(content, format)
}

// Close releases resources associated with the parser.
func (p *Parser) Close() error {
	if p.luaParser != nil {
		return p.luaParser.Close()
	}
	return nil
}

// luaConfigPattern matches "cpustat.config" followed by optional whitespace
// and "=" at the start of a line, so a comment that mentions it does not
// count.
var luaConfigPattern = regexp.MustCompile(`(?m)^\s*cpustat\.config\s*=`)

// yamlSectionPattern matches a top-level YAML mapping key such as
// "source:". Legacy directives never end their key with a colon.
var yamlSectionPattern = regexp.MustCompile(`(?m)^(source|sample|remote|log|output|metrics):\s*(#.*)?$`)

// DetectFormat guesses the format of content.
func DetectFormat(content []byte) Format {
	switch {
	case luaConfigPattern.Match(content):
		return FormatLua
	case yamlSectionPattern.Match(content):
		return FormatYAML
	default:
		return FormatLegacy
	}
}

func formatFromExtension(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".lua":
		return FormatLua, true
	default:
		return "", false
	}
}

// LoadFile parses path, expands environment references, applies overrides
// in order and validates the result.
func LoadFile(path string, overrides ...func(*Config) error) (*Config, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	defer p.Close()

	cfg, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}
	ExpandEnvConfig(cfg)
	for _, override := range overrides {
		if err := override(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
