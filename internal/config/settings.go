package config

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"
)

// settingKeys lists the flat keys understood by the Lua and legacy formats,
// in the order the Migrator writes them.
var settingKeys = []string{
	"source",
	"proc_root",
	"duration",
	"interval",
	"count",
	"remote",
	"remote_host",
	"remote_port",
	"remote_user",
	"remote_password",
	"remote_identity",
	"remote_passphrase",
	"remote_agent",
	"remote_known_hosts",
	"remote_insecure",
	"remote_proc_root",
	"remote_timeout",
	"log_level",
	"log_format",
	"output",
	"metrics_address",
}

var knownSettings = func() map[string]bool {
	m := make(map[string]bool, len(settingKeys))
	for _, k := range settingKeys {
		m[k] = true
	}
	return m
}()

// IsSetting reports whether key is a recognized setting name.
func IsSetting(key string) bool {
	return knownSettings[key]
}

// Set stores value under key in cfg, for overrides coming from outside a
// configuration file. Unlike the file parsers it rejects unknown keys.
func Set(cfg *Config, key, value string) error {
	if !IsSetting(key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := applySetting(cfg, key, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// applySetting stores value under key in cfg. Unknown keys are ignored.
func applySetting(cfg *Config, key, value string) error {
	value = strings.TrimSpace(value)

	switch key {
	case "source":
		cfg.Source.Kind = strings.ToLower(value)
	case "proc_root":
		cfg.Source.ProcRoot = value

	case "duration":
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		cfg.Sample.Duration = d
	case "interval":
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
		cfg.Sample.Interval = d
	case "count":
		n, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("invalid count: %w", err)
		}
		cfg.Sample.Count = n

	case "remote":
		user, host, port, err := ParseRemoteTarget(value)
		if err != nil {
			return err
		}
		cfg.Remote.Host = host
		if user != "" {
			cfg.Remote.User = user
		}
		if port != 0 {
			cfg.Remote.Port = port
		}
		if cfg.Source.Kind == DefaultSource || cfg.Source.Kind == "" {
			cfg.Source.Kind = "remote"
		}
	case "remote_host":
		cfg.Remote.Host = value
	case "remote_port":
		port, err := parsePort(value)
		if err != nil {
			return fmt.Errorf("invalid remote_port: %w", err)
		}
		cfg.Remote.Port = port
	case "remote_user":
		cfg.Remote.User = value
	case "remote_password":
		cfg.Remote.Password = value
	case "remote_identity":
		cfg.Remote.IdentityFile = value
	case "remote_passphrase":
		cfg.Remote.Passphrase = value
	case "remote_agent":
		cfg.Remote.UseAgent = parseBool(value)
	case "remote_known_hosts":
		cfg.Remote.KnownHosts = value
	case "remote_insecure":
		cfg.Remote.Insecure = parseBool(value)
	case "remote_proc_root":
		cfg.Remote.ProcRoot = value
	case "remote_timeout":
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("invalid remote_timeout: %w", err)
		}
		cfg.Remote.Timeout = d

	case "log_level":
		l, err := ParseLogLevel(value)
		if err != nil {
			return err
		}
		cfg.Log.Level = l
	case "log_format":
		f, err := ParseLogFormat(value)
		if err != nil {
			return err
		}
		cfg.Log.Format = f
	case "output":
		f, err := ParseOutputFormat(value)
		if err != nil {
			return err
		}
		cfg.Output.Format = f
	case "metrics_address":
		cfg.Metrics.Address = value
	}
	return nil
}

// ParseRemoteTarget splits a "[user@]host[:port]" target. IPv6 hosts with
// a port must be bracketed. A missing user or port is returned as its zero
// value.
func ParseRemoteTarget(s string) (user, host string, port int, err error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "@"); i >= 0 {
		user, s = s[:i], s[i+1:]
		if user == "" {
			return "", "", 0, fmt.Errorf("invalid remote target %q: empty user", s)
		}
	}

	host = s
	if h, p, splitErr := net.SplitHostPort(s); splitErr == nil {
		port, err = parsePort(p)
		if err != nil {
			return "", "", 0, fmt.Errorf("invalid remote target %q: %w", s, err)
		}
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	}

	if host == "" {
		return "", "", 0, fmt.Errorf("invalid remote target %q: empty host", s)
	}
	return user, host, port, nil
}

// parseSeconds accepts either a number of seconds ("1.5") or a Go duration
// string ("1500ms").
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if f, err := parseFloat(s); err == nil {
		return time.Duration(math.Round(f * float64(time.Second))), nil
	}
	return time.ParseDuration(s)
}

func parsePort(s string) (int, error) {
	port, err := parseInt(s)
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// parseBool parses a boolean value from common string representations.
// Accepts: yes, no, true, false, 1, 0
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true
	default:
		return false
	}
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
