// This file implements the plain "key value" configuration parser.

package config

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// LegacyParser parses plain key/value configuration files. Each non-blank
// line is "key value" (or "key" alone for a true boolean); lines starting
// with # are comments.
type LegacyParser struct{}

// NewLegacyParser creates a new LegacyParser instance.
func NewLegacyParser() *LegacyParser {
	return &LegacyParser{}
}

// Parse parses a key/value configuration from content bytes.
// It returns a Config with parsed values or an error if parsing fails.
func (p *LegacyParser) Parse(content []byte) (*Config, error) {
	cfg := DefaultConfig()
	scanner := bufio.NewScanner(bytes.NewReader(content))

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if err := p.parseDirective(&cfg, trimmed, lineNum); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading configuration: %w", err)
	}
	return &cfg, nil
}

// parseDirective parses a single configuration directive line.
// Format: "key value" or "key" (for boolean flags).
func (p *LegacyParser) parseDirective(cfg *Config, line string, lineNum int) error {
	key, value := line, "yes" // a bare key is a true boolean
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		key, value = line[:i], strings.TrimSpace(line[i+1:])
	}
	key = strings.ToLower(key)

	// Unknown directives are ignored for forward compatibility.
	if !IsSetting(key) {
		return nil
	}
	if err := applySetting(cfg, key, value); err != nil {
		return fmt.Errorf("line %d: %w", lineNum, err)
	}
	return nil
}
