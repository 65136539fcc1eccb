package config

import (
	"strings"
	"testing"
	"time"
)

func TestLegacyParserParse(t *testing.T) {
	content := `# go-cpustat configuration
source remote
duration 0.25
interval 5s
count 10

remote_host	db1.example.com
remote_port 2222
remote_user ops
remote_identity /home/ops/.ssh/id_ed25519
remote_agent
remote_insecure no
remote_proc_root /host/proc
remote_timeout 2

log_level debug
log_format json
output json
metrics_address :9100
`
	cfg, err := NewLegacyParser().Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Source.Kind != "remote" {
		t.Errorf("source = %q", cfg.Source.Kind)
	}
	if cfg.Sample.Duration != 250*time.Millisecond {
		t.Errorf("duration = %v, want 250ms", cfg.Sample.Duration)
	}
	if cfg.Sample.Interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s", cfg.Sample.Interval)
	}
	if cfg.Sample.Count != 10 {
		t.Errorf("count = %d, want 10", cfg.Sample.Count)
	}
	if cfg.Remote.Host != "db1.example.com" {
		t.Errorf("remote host = %q (tab separated key)", cfg.Remote.Host)
	}
	if cfg.Remote.Port != 2222 || cfg.Remote.User != "ops" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if !cfg.Remote.UseAgent {
		t.Error("bare remote_agent should enable the agent")
	}
	if cfg.Remote.Insecure {
		t.Error("remote_insecure no parsed as true")
	}
	if cfg.Remote.ProcRoot != "/host/proc" || cfg.Remote.Timeout != 2*time.Second {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Log.Level != LogLevelDebug || cfg.Log.Format != LogFormatJSON {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Output.Format != OutputJSON {
		t.Errorf("output = %v", cfg.Output.Format)
	}
	if cfg.Metrics.Address != ":9100" {
		t.Errorf("metrics address = %q", cfg.Metrics.Address)
	}
}

func TestLegacyParserDefaults(t *testing.T) {
	cfg, err := NewLegacyParser().Parse([]byte("# nothing set\n\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if *cfg != DefaultConfig() {
		t.Errorf("Parse(empty) = %+v, want defaults", *cfg)
	}
}

func TestLegacyParserRemoteShorthand(t *testing.T) {
	cfg, err := NewLegacyParser().Parse([]byte("remote admin@[fe80::1]:2200\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Source.Kind != "remote" {
		t.Errorf("source = %q, want remote", cfg.Source.Kind)
	}
	if cfg.Remote.User != "admin" || cfg.Remote.Host != "fe80::1" || cfg.Remote.Port != 2200 {
		t.Errorf("remote = %+v", cfg.Remote)
	}
}

func TestLegacyParserIgnoresUnknownDirectives(t *testing.T) {
	cfg, err := NewLegacyParser().Parse([]byte("own_window yes\nduration 3\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Sample.Duration != 3*time.Second {
		t.Errorf("duration = %v", cfg.Sample.Duration)
	}
}

func TestLegacyParserErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"bad duration", "duration soon\n", "line 1: invalid duration"},
		{"bad count", "# header\ncount many\n", "line 2: invalid count"},
		{"bad port", "remote_port 70000\n", "invalid remote_port"},
		{"bad log level", "log_level loud\n", "unknown log level"},
		{"bad output", "output xml\n", "unknown output format"},
		{"bad remote", "remote @host\n", "empty user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLegacyParser().Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}
