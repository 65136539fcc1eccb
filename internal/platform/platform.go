package platform

import (
	"fmt"
	"strings"
)

// Kind selects a CounterSource backend.
type Kind string

const (
	// KindAuto picks local when <ProcRoot>/stat is readable, portable
	// otherwise.
	KindAuto Kind = "auto"
	// KindLocal reads /proc text files on this machine.
	KindLocal Kind = "local"
	// KindRemote reads /proc text files on another machine over SSH.
	KindRemote Kind = "remote"
	// KindPortable reads counters through gopsutil.
	KindPortable Kind = "portable"
)

// Kinds lists the accepted backend names.
var Kinds = []Kind{KindAuto, KindLocal, KindRemote, KindPortable}

// ParseKind converts a backend name to a Kind. The empty string is
// KindLocal.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindLocal, nil
	}
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source %q (want one of auto, local, remote, portable)", s)
}

// SourceConfig describes which backend NewSource should build.
type SourceConfig struct {
	// Kind selects the backend (default: local).
	Kind Kind

	// ProcRoot is the proc mount point for local and auto sources
	// (default: /proc).
	ProcRoot string

	// Remote configures the SSH connection when Kind is KindRemote.
	Remote RemoteConfig
}
