// This file implements environment variable expansion for configuration values.

package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches environment variable references in configuration values.
// Supports formats:
//   - ${VAR_NAME} - standard shell-like format
//   - ${VAR_NAME:-default} - with default value if unset or empty
//   - $VAR_NAME - simple format (word characters only)
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// ExpandEnv expands environment variable references in a string.
// Unset variables without defaults are replaced with the empty string.
func ExpandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if inner, ok := strings.CutPrefix(match, "${"); ok {
			inner = strings.TrimSuffix(inner, "}")
			if name, def, found := strings.Cut(inner, ":-"); found {
				if val := os.Getenv(name); val != "" {
					return val
				}
				return def
			}
			return os.Getenv(inner)
		}
		return os.Getenv(match[1:])
	})
}

// ExpandEnvConfig expands environment variables in every string setting:
// paths, the remote host and user, credentials and the metrics address.
func ExpandEnvConfig(cfg *Config) {
	ExpandEnvConfigWithOptions(cfg)
}

// EnvConfigOption is a functional option for environment variable expansion.
type EnvConfigOption func(*envConfigOptions)

type envConfigOptions struct {
	expandPaths       bool
	expandCredentials bool
}

func defaultEnvConfigOptions() *envConfigOptions {
	return &envConfigOptions{
		expandPaths:       true,
		expandCredentials: true,
	}
}

// WithExpandPaths controls whether proc roots, identity and known_hosts
// paths are expanded.
func WithExpandPaths(expand bool) EnvConfigOption {
	return func(o *envConfigOptions) {
		o.expandPaths = expand
	}
}

// WithExpandCredentials controls whether the password and passphrase are
// expanded. Disable it when a literal "$" can appear in a secret.
func WithExpandCredentials(expand bool) EnvConfigOption {
	return func(o *envConfigOptions) {
		o.expandCredentials = expand
	}
}

// ExpandEnvConfigWithOptions expands environment variables with specific options.
func ExpandEnvConfigWithOptions(cfg *Config, opts ...EnvConfigOption) {
	if cfg == nil {
		return
	}

	options := defaultEnvConfigOptions()
	for _, opt := range opts {
		opt(options)
	}

	cfg.Source.Kind = ExpandEnv(cfg.Source.Kind)
	cfg.Remote.Host = ExpandEnv(cfg.Remote.Host)
	cfg.Remote.User = ExpandEnv(cfg.Remote.User)
	cfg.Metrics.Address = ExpandEnv(cfg.Metrics.Address)

	if options.expandPaths {
		cfg.Source.ProcRoot = ExpandEnv(cfg.Source.ProcRoot)
		cfg.Remote.ProcRoot = ExpandEnv(cfg.Remote.ProcRoot)
		cfg.Remote.IdentityFile = ExpandEnv(cfg.Remote.IdentityFile)
		cfg.Remote.KnownHosts = ExpandEnv(cfg.Remote.KnownHosts)
	}

	if options.expandCredentials {
		cfg.Remote.Password = ExpandEnv(cfg.Remote.Password)
		cfg.Remote.Passphrase = ExpandEnv(cfg.Remote.Passphrase)
	}
}
