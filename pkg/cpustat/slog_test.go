package cpustat

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/opd-ai/go-cpustat/internal/config"
)

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	tests := []struct {
		log  func(string, ...any)
		msg  string
		want string
	}{
		{adapter.Debug, "debug message", "level=DEBUG"},
		{adapter.Info, "info message", "level=INFO"},
		{adapter.Warn, "warn message", "level=WARN"},
		{adapter.Error, "error message", "level=ERROR"},
	}
	for _, tt := range tests {
		buf.Reset()
		tt.log(tt.msg, "key", "value")
		out := buf.String()
		if !strings.Contains(out, tt.msg) || !strings.Contains(out, tt.want) || !strings.Contains(out, "key=value") {
			t.Errorf("log output = %q, want %q with %s and key=value", out, tt.msg, tt.want)
		}
	}
}

func TestNewSlogAdapterNil(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter.Slog() != slog.Default() {
		t.Error("NewSlogAdapter(nil) should wrap slog.Default()")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.LogConfig{Level: config.LogLevelWarn, Format: config.LogFormatJSON})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}

	logger.Warn("kept", "source", "local")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %q", err, buf.String())
	}
	if entry["msg"] != "kept" || entry["source"] != "local" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.LogConfig{Level: config.LogLevelDebug})
	logger.Debug("hello")
	if !strings.Contains(buf.String(), "level=DEBUG msg=hello") {
		t.Errorf("output = %q", buf.String())
	}
	if slogFor(logger) == nil {
		t.Error("slogFor(NewLogger) = nil")
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	JSONLogger(&buf, slog.LevelInfo).Info("json message", "n", 1)
	if !strings.Contains(buf.String(), `"msg":"json message"`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Debug("x")
	logger.Info("x")
	logger.Warn("x")
	logger.Error("x")
	if slogFor(logger) != nil {
		t.Error("slogFor(NopLogger) should be nil")
	}
}
