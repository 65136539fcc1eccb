package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func customConfig() Config {
	cfg := DefaultConfig()
	cfg.Source.Kind = "remote"
	cfg.Sample.Duration = 1500 * time.Millisecond
	cfg.Sample.Count = 3
	cfg.Remote.Host = "db1"
	cfg.Remote.User = "ops"
	cfg.Remote.Password = "it's secret"
	cfg.Remote.UseAgent = true
	cfg.Log.Level = LogLevelDebug
	cfg.Output.Format = OutputJSON
	return cfg
}

func TestMigratorMigrateToLua(t *testing.T) {
	cfg := customConfig()
	out, err := NewMigrator().MigrateToLua(&cfg)
	if err != nil {
		t.Fatalf("MigrateToLua failed: %v", err)
	}

	text := string(out)
	for _, want := range []string{
		"-- go-cpustat Lua configuration",
		"cpustat.config = {",
		"    source = 'remote',",
		"    duration = 1.5,",
		"    remote_password = 'it\\'s secret',",
		"    remote_agent = true,",
		"    output = 'json',",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "proc_root") {
		t.Errorf("default proc_root written without WithDefaults:\n%s", text)
	}
}

func TestMigratorRoundTrip(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	defer p.Close()

	cfg := customConfig()
	for _, format := range []Format{FormatLua, FormatLegacy, FormatYAML} {
		for _, defaults := range []bool{false, true} {
			name := string(format)
			if defaults {
				name += " with defaults"
			}
			t.Run(name, func(t *testing.T) {
				out, err := NewMigrator(WithDefaults(defaults)).Marshal(&cfg, format)
				if err != nil {
					t.Fatalf("Marshal failed: %v", err)
				}
				if got := DetectFormat(out); got != format {
					t.Errorf("DetectFormat(output) = %q, want %q", got, format)
				}
				back, err := p.ParseFormat(out, format)
				if err != nil {
					t.Fatalf("ParseFormat failed: %v\n%s", err, out)
				}
				if *back != cfg {
					t.Errorf("round trip = %+v\nwant %+v\n%s", *back, cfg, out)
				}
			})
		}
	}
}

func TestMigratorWithoutComments(t *testing.T) {
	cfg := DefaultConfig()
	out, err := NewMigrator(WithComments(false)).MigrateToLegacy(&cfg)
	if err != nil {
		t.Fatalf("MigrateToLegacy failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("default config without comments = %q, want empty", out)
	}
}

func TestMigratorNilConfig(t *testing.T) {
	m := NewMigrator()
	if _, err := m.MigrateToLua(nil); err == nil {
		t.Error("MigrateToLua(nil) succeeded")
	}
	if _, err := m.MigrateToLegacy(nil); err == nil {
		t.Error("MigrateToLegacy(nil) succeeded")
	}
	if _, err := m.Marshal(nil, FormatYAML); err == nil {
		t.Error("Marshal(nil, yaml) succeeded")
	}
	cfg := DefaultConfig()
	if _, err := m.Marshal(&cfg, "toml"); err == nil {
		t.Error("Marshal(toml) succeeded")
	}
}

func TestMigrateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpustat.conf")
	if err := os.WriteFile(path, []byte("duration 2\noutput json\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := MigrateFile(path, FormatYAML)
	if err != nil {
		t.Fatalf("MigrateFile failed: %v", err)
	}
	if !strings.Contains(string(out), "duration: 2s") || !strings.Contains(string(out), "format: json") {
		t.Errorf("MigrateFile output:\n%s", out)
	}

	if _, err := MigrateFile(filepath.Join(t.TempDir(), "missing"), FormatLua); err == nil {
		t.Error("MigrateFile succeeded for a missing file")
	}
}

func TestMigrateLegacyContent(t *testing.T) {
	out, err := MigrateLegacyContent([]byte("count 9\n"), WithComments(false))
	if err != nil {
		t.Fatalf("MigrateLegacyContent failed: %v", err)
	}
	if string(out) != "cpustat.config = {\n    count = 9,\n}\n" {
		t.Errorf("MigrateLegacyContent = %q", out)
	}

	if _, err := MigrateLegacyContent([]byte("count x\n")); err == nil {
		t.Error("MigrateLegacyContent accepted an invalid count")
	}
}
