package cpustat

import (
	"expvar"
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncrementSamples()
	m.IncrementSamples()
	m.IncrementInsufficientSamples()
	m.IncrementFactReads()
	m.IncrementReadErrors()
	m.IncrementConfigReloads()
	m.IncrementConfigErrors()
	m.SetUtilization(42.5)
	m.RecordWindow(time.Second, 1100*time.Millisecond)
	m.RecordWindow(time.Second, 1300*time.Millisecond)

	s := m.Snapshot()
	if s.Samples != 2 || s.InsufficientSamples != 1 || s.FactReads != 1 || s.ReadErrors != 1 {
		t.Errorf("counters = %+v", s)
	}
	if s.ConfigReloads != 1 || s.ConfigErrors != 1 {
		t.Errorf("config counters = %+v", s)
	}
	if s.LastUtilization != 42.5 {
		t.Errorf("LastUtilization = %v", s.LastUtilization)
	}
	if s.WindowElapsedAvg != 1200*time.Millisecond {
		t.Errorf("WindowElapsedAvg = %v", s.WindowElapsedAvg)
	}
	if s.WindowOvershootAvg != 200*time.Millisecond {
		t.Errorf("WindowOvershootAvg = %v", s.WindowOvershootAvg)
	}

	m.Reset()
	if got := m.Snapshot(); got != (MetricsSnapshot{}) {
		t.Errorf("after Reset = %+v", got)
	}
}

func TestMetricsRecordWindowNoUndershoot(t *testing.T) {
	m := NewMetrics()
	m.RecordWindow(time.Second, 900*time.Millisecond)
	if got := m.Snapshot().WindowOvershootAvg; got != 0 {
		t.Errorf("WindowOvershootAvg = %v, want 0", got)
	}
}

func TestMetricsRegisterExpvar(t *testing.T) {
	m := NewMetrics()
	m.RegisterExpvar()
	m.RegisterExpvar()

	m.IncrementSamples()
	v := expvar.Get("cpustat_samples_total")
	if v == nil {
		t.Fatal("cpustat_samples_total not published")
	}
	if v.String() != "1" {
		t.Errorf("cpustat_samples_total = %s, want 1", v.String())
	}
}
