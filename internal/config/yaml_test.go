package config

import (
	"strings"
	"testing"
	"time"
)

func TestYAMLParserParse(t *testing.T) {
	content := `
source:
  kind: remote
  proc_root: /proc
sample:
  duration: 1.5
  interval: 1m
  count: 4
remote:
  host: db1.example.com
  port: 2200
  user: ops
  identity: ~/.ssh/id_ed25519
  passphrase: ${KEY_PASS}
  known_hosts: /etc/ssh/ssh_known_hosts
  timeout: 3s
log:
  level: warn
  format: json
output:
  format: text
metrics:
  address: 127.0.0.1:9100
`
	cfg, err := NewYAMLParser().Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Source.Kind != "remote" {
		t.Errorf("source = %q", cfg.Source.Kind)
	}
	if cfg.Sample.Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v, want 1.5s", cfg.Sample.Duration)
	}
	if cfg.Sample.Interval != time.Minute || cfg.Sample.Count != 4 {
		t.Errorf("sample = %+v", cfg.Sample)
	}
	if cfg.Remote.Host != "db1.example.com" || cfg.Remote.Port != 2200 || cfg.Remote.User != "ops" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Remote.Passphrase != "${KEY_PASS}" {
		t.Errorf("passphrase = %q, want it left for env expansion", cfg.Remote.Passphrase)
	}
	if cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("remote timeout = %v", cfg.Remote.Timeout)
	}
	if cfg.Remote.ProcRoot != DefaultProcRoot {
		t.Errorf("remote proc root = %q, want default", cfg.Remote.ProcRoot)
	}
	if cfg.Log.Level != LogLevelWarn || cfg.Log.Format != LogFormatJSON {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Metrics.Address != "127.0.0.1:9100" {
		t.Errorf("metrics = %q", cfg.Metrics.Address)
	}
}

func TestYAMLParserPartialKeepsDefaults(t *testing.T) {
	cfg, err := NewYAMLParser().Parse([]byte("sample:\n  count: 2\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := DefaultConfig()
	want.Sample.Count = 2
	if *cfg != want {
		t.Errorf("Parse = %+v, want %+v", *cfg, want)
	}
}

func TestYAMLParserErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown key", "sample:\n  duraton: 2s\n", "duraton"},
		{"bad duration", "sample:\n  duration: soon\n", "invalid duration"},
		{"duration not scalar", "sample:\n  duration: [1, 2]\n", "must be a scalar"},
		{"bad log level", "log:\n  level: loud\n", "log.level"},
		{"bad output", "output:\n  format: xml\n", "output.format"},
		{"not yaml", "sample: [\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLParser().Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestMarshalYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Kind = "auto"
	cfg.Sample.Duration = 250 * time.Millisecond
	cfg.Remote.Host = "db1"
	cfg.Output.Format = OutputJSON

	out, err := MarshalYAML(&cfg)
	if err != nil {
		t.Fatalf("MarshalYAML failed: %v", err)
	}
	if !strings.Contains(string(out), "duration: 250ms") {
		t.Errorf("MarshalYAML output missing duration:\n%s", out)
	}
	if strings.Contains(string(out), "password") {
		t.Errorf("MarshalYAML output contains an empty password field:\n%s", out)
	}

	back, err := NewYAMLParser().Parse(out)
	if err != nil {
		t.Fatalf("Parse(MarshalYAML) failed: %v\n%s", err, out)
	}
	if *back != cfg {
		t.Errorf("round trip = %+v, want %+v", *back, cfg)
	}
}
