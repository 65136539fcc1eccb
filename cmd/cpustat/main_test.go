package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/go-cpustat/internal/config"
	"github.com/opd-ai/go-cpustat/pkg/cpustat"
)

// writeProcTree writes mock proc files and, after a short delay, advances
// the counters so that a sampling window sees ticks elapse.
func writeProcTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Errorf("failed to write mock %s: %v", name, err)
		}
	}
	write("stat", "cpu  100 0 50 850 0 0 0\nprocs_running 2\nprocs_blocked 1\n")
	write("loadavg", "0.10 0.20 0.30 1/99 7\n")
	write("cpuinfo", "processor\t: 0\nvendor_id\t: GenuineIntel\ncpu cores\t: 8\n")

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(40 * time.Millisecond)
		write("stat", "cpu  200 0 100 1700 0 0 0\nprocs_running 2\nprocs_blocked 1\n")
	}()
	t.Cleanup(func() { <-done })
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != 0 || !strings.Contains(out, "cpustat version "+Version) {
		t.Errorf("run(--version) = %d, %q", code, out)
	}
}

func TestRunBadFlags(t *testing.T) {
	if code, _, _ := runCLI(t, "--no-such-flag"); code != 2 {
		t.Errorf("unknown flag exit code = %d, want 2", code)
	}
	if code, _, _ := runCLI(t, "extra"); code != 2 {
		t.Errorf("positional argument exit code = %d, want 2", code)
	}
	code, _, errOut := runCLI(t, "--print-config", "yaml", "--count", "many")
	if code != 1 || !strings.Contains(errOut, "--count") {
		t.Errorf("invalid count = %d, %q", code, errOut)
	}
}

func TestRunPrintConfig(t *testing.T) {
	code, out, errOut := runCLI(t, "--print-config", "yaml", "-d", "2.5", "-o", "json", "--remote", "ops@db1:2222", "--agent")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	for _, want := range []string{"kind: remote", "duration: 2.5s", "host: db1", "port: 2222", "agent: true", "format: json"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunPrintConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpustat.conf")
	if err := os.WriteFile(path, []byte("duration 3\ncount 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "-c", path, "--count", "9", "--print-config", "legacy")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	if !strings.Contains(out, "duration 3") || !strings.Contains(out, "count 9") {
		t.Errorf("output:\n%s", out)
	}

	if code, _, _ := runCLI(t, "-c", path, "--print-config", "toml"); code != 1 {
		t.Errorf("unknown print format exit code = %d, want 1", code)
	}
}

func TestRunReportJSON(t *testing.T) {
	dir := writeProcTree(t)
	code, out, errOut := runCLI(t, "--proc-root", dir, "-d", "0.2", "-o", "json", "--log-level", "error")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}

	var r struct {
		Utilization  float64            `json:"utilization"`
		Percentages  map[string]float64 `json:"percentages"`
		Cores        int                `json:"cores"`
		ProcsRunning uint64             `json:"procs_running"`
		LoadAverage  []float64          `json:"load_average"`
	}
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if r.Percentages["idle"] != 85 || r.Utilization != 15 {
		t.Errorf("percentages = %v, utilization = %v", r.Percentages, r.Utilization)
	}
	if r.Cores != 8 || r.ProcsRunning != 2 || len(r.LoadAverage) != 3 {
		t.Errorf("report = %+v", r)
	}
}

func TestRunReportInsufficientSample(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"stat":    "cpu  1 0 1 1 0 0 0\nprocs_running 1\nprocs_blocked 0\n",
		"loadavg": "0 0 0 1/1 1\n",
		"cpuinfo": "processor\t: 0\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	code, _, errOut := runCLI(t, "--proc-root", dir, "-d", "0.01", "--log-level", "error")
	if code != 1 || !strings.Contains(errOut, "insufficient") {
		t.Errorf("run = %d, %q", code, errOut)
	}
}

func TestRunMissingConfig(t *testing.T) {
	code, _, errOut := runCLI(t, "-c", filepath.Join(t.TempDir(), "missing.conf"))
	if code != 1 || errOut == "" {
		t.Errorf("run = %d, %q", code, errOut)
	}
}

func TestMetricsHandler(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.ProcRoot = writeProcTree(t)
	client, err := cpustat.New(&cfg, &cpustat.Options{Logger: cpustat.NopLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer client.Close()

	handler, err := metricsHandler(client, cpustat.NewMetrics())
	if err != nil {
		t.Fatalf("metricsHandler failed: %v", err)
	}

	for path, want := range map[string]string{
		"/metrics":    "cpustat_up",
		"/debug/vars": "cpustat_samples_total",
		"/healthz":    `"status":"ok"`,
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		body, _ := io.ReadAll(rec.Body)
		if rec.Code != 200 || !strings.Contains(string(body), want) {
			t.Errorf("GET %s = %d, body missing %q", path, rec.Code, want)
		}
	}
}
