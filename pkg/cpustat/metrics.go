package cpustat

import (
	"expvar"
	"math"
	"sync/atomic"
	"time"
)

// Metrics collects operational counters for a Client. It uses Go's expvar
// package for exposition, available at /debug/vars when an HTTP server is
// running.
//
// Thread-safe for concurrent use.
//
// Example usage:
//
//	metrics := cpustat.NewMetrics()
//	metrics.RegisterExpvar()
//	client, err := cpustat.New(cfg, &cpustat.Options{Metrics: metrics})
type Metrics struct {
	// Counters
	samples             atomic.Int64
	insufficientSamples atomic.Int64
	factReads           atomic.Int64
	readErrors          atomic.Int64
	configReloads       atomic.Int64
	configErrors        atomic.Int64

	// Window latency tracking (stored as nanoseconds)
	windowElapsedNs atomic.Int64
	windowCount     atomic.Int64
	windowOvershoot atomic.Int64

	// Last utilization percentage, stored as float64 bits
	lastUtilization atomic.Uint64

	registered atomic.Bool
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RegisterExpvar registers all metrics with Go's expvar package.
// Safe to call multiple times; subsequent calls are no-ops. expvar names
// are process-global, so register only one Metrics per process.
func (m *Metrics) RegisterExpvar() {
	if m.registered.Swap(true) {
		return
	}

	expvar.Publish("cpustat_samples_total", expvar.Func(func() any { return m.samples.Load() }))
	expvar.Publish("cpustat_insufficient_samples_total", expvar.Func(func() any { return m.insufficientSamples.Load() }))
	expvar.Publish("cpustat_fact_reads_total", expvar.Func(func() any { return m.factReads.Load() }))
	expvar.Publish("cpustat_read_errors_total", expvar.Func(func() any { return m.readErrors.Load() }))
	expvar.Publish("cpustat_config_reloads_total", expvar.Func(func() any { return m.configReloads.Load() }))
	expvar.Publish("cpustat_config_errors_total", expvar.Func(func() any { return m.configErrors.Load() }))

	expvar.Publish("cpustat_utilization_percent", expvar.Func(func() any {
		return math.Float64frombits(m.lastUtilization.Load())
	}))
	expvar.Publish("cpustat_window_elapsed_avg_ms", expvar.Func(func() any {
		return float64(safeDivide(m.windowElapsedNs.Load(), m.windowCount.Load())) / 1e6
	}))
	expvar.Publish("cpustat_window_overshoot_avg_ms", expvar.Func(func() any {
		return float64(safeDivide(m.windowOvershoot.Load(), m.windowCount.Load())) / 1e6
	}))
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	count := m.windowCount.Load()
	return MetricsSnapshot{
		Samples:             m.samples.Load(),
		InsufficientSamples: m.insufficientSamples.Load(),
		FactReads:           m.factReads.Load(),
		ReadErrors:          m.readErrors.Load(),
		ConfigReloads:       m.configReloads.Load(),
		ConfigErrors:        m.configErrors.Load(),

		LastUtilization: math.Float64frombits(m.lastUtilization.Load()),

		WindowElapsedAvg:   safeDivide(m.windowElapsedNs.Load(), count),
		WindowOvershootAvg: safeDivide(m.windowOvershoot.Load(), count),
	}
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	// Counters
	Samples             int64
	InsufficientSamples int64
	FactReads           int64
	ReadErrors          int64
	ConfigReloads       int64
	ConfigErrors        int64

	// Gauges
	LastUtilization float64

	// WindowElapsedAvg is the mean measured window length.
	WindowElapsedAvg time.Duration
	// WindowOvershootAvg is the mean amount by which windows exceeded the
	// requested duration.
	WindowOvershootAvg time.Duration
}

// IncrementSamples records a successful sample.
func (m *Metrics) IncrementSamples() {
	m.samples.Add(1)
}

// IncrementInsufficientSamples records a window in which no ticks elapsed.
func (m *Metrics) IncrementInsufficientSamples() {
	m.insufficientSamples.Add(1)
}

// IncrementFactReads records a single-shot read of a counter or fact.
func (m *Metrics) IncrementFactReads() {
	m.factReads.Add(1)
}

// IncrementReadErrors records a failed source read.
func (m *Metrics) IncrementReadErrors() {
	m.readErrors.Add(1)
}

// IncrementConfigReloads records a successful configuration reload.
func (m *Metrics) IncrementConfigReloads() {
	m.configReloads.Add(1)
}

// IncrementConfigErrors records a failed configuration reload.
func (m *Metrics) IncrementConfigErrors() {
	m.configErrors.Add(1)
}

// SetUtilization updates the last observed utilization gauge.
func (m *Metrics) SetUtilization(pct float64) {
	m.lastUtilization.Store(math.Float64bits(pct))
}

// RecordWindow records the requested and measured length of a window.
func (m *Metrics) RecordWindow(requested, elapsed time.Duration) {
	m.windowElapsedNs.Add(elapsed.Nanoseconds())
	m.windowOvershoot.Add(max(elapsed-requested, 0).Nanoseconds())
	m.windowCount.Add(1)
}

// Reset clears all metrics. Useful for testing.
func (m *Metrics) Reset() {
	m.samples.Store(0)
	m.insufficientSamples.Store(0)
	m.factReads.Store(0)
	m.readErrors.Store(0)
	m.configReloads.Store(0)
	m.configErrors.Store(0)
	m.windowElapsedNs.Store(0)
	m.windowCount.Store(0)
	m.windowOvershoot.Store(0)
	m.lastUtilization.Store(0)
}

func safeDivide(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}
