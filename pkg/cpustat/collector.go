package cpustat

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opd-ai/go-cpustat/internal/monitor"
)

// userHZ converts kernel ticks to seconds. Linux reports /proc/stat in
// USER_HZ units, which is 100 on every mainstream architecture.
const userHZ = 100

// DefaultScrapeTimeout bounds the reads performed for one scrape.
const DefaultScrapeTimeout = 5 * time.Second

// Collector exposes the cumulative counters of a CounterSource as
// Prometheus metrics. Every scrape performs fresh reads; rates are left to
// the query side.
type Collector struct {
	source  func() monitor.CounterSource
	logger  Logger
	timeout time.Duration

	up           *prometheus.Desc
	cpuSeconds   *prometheus.Desc
	loadAverage  *prometheus.Desc
	procsRunning *prometheus.Desc
	procsBlocked *prometheus.Desc
}

// NewCollector creates a Collector reading from the source returned by
// source at scrape time. A nil logger discards read failures.
func NewCollector(source func() monitor.CounterSource, logger Logger) *Collector {
	if logger == nil {
		logger = NopLogger()
	}
	return &Collector{
		source:  source,
		logger:  logger,
		timeout: DefaultScrapeTimeout,

		up: prometheus.NewDesc(
			"cpustat_up",
			"Whether every counter read of the last scrape succeeded.",
			nil, nil,
		),
		cpuSeconds: prometheus.NewDesc(
			"cpustat_cpu_seconds_total",
			"Seconds the CPUs spent in each mode, summed over all CPUs.",
			[]string{"mode"}, nil,
		),
		loadAverage: prometheus.NewDesc(
			"cpustat_load_average",
			"Run-queue load average over the given period.",
			[]string{"period"}, nil,
		),
		procsRunning: prometheus.NewDesc(
			"cpustat_procs_running",
			"Number of processes in runnable state.",
			nil, nil,
		),
		procsBlocked: prometheus.NewDesc(
			"cpustat_procs_blocked",
			"Number of processes blocked waiting for I/O.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.cpuSeconds
	ch <- c.loadAverage
	ch <- c.procsRunning
	ch <- c.procsBlocked
}

// Collect implements prometheus.Collector. A failed read drops the affected
// series and sets cpustat_up to 0.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	src := c.source()
	up := 1.0

	if v, err := src.ReadModeVector(ctx); err != nil {
		c.logger.Warn("scrape: reading mode counters failed", "error", err)
		up = 0
	} else {
		for i, ticks := range v {
			ch <- prometheus.MustNewConstMetric(c.cpuSeconds, prometheus.CounterValue,
				float64(ticks)/userHZ, string(monitor.ModeAt(i)))
		}
	}

	if l, err := src.ReadLoadAverages(ctx); err != nil {
		c.logger.Warn("scrape: reading load averages failed", "error", err)
		up = 0
	} else {
		ch <- prometheus.MustNewConstMetric(c.loadAverage, prometheus.GaugeValue, l.One, "1m")
		ch <- prometheus.MustNewConstMetric(c.loadAverage, prometheus.GaugeValue, l.Five, "5m")
		ch <- prometheus.MustNewConstMetric(c.loadAverage, prometheus.GaugeValue, l.Fifteen, "15m")
	}

	for _, f := range []struct {
		name string
		desc *prometheus.Desc
	}{
		{monitor.FieldProcsRunning, c.procsRunning},
		{monitor.FieldProcsBlocked, c.procsBlocked},
	} {
		n, err := src.ReadScalarField(ctx, f.name)
		if err != nil {
			c.logger.Warn("scrape: reading field failed", "field", f.name, "error", err)
			up = 0
			continue
		}
		ch <- prometheus.MustNewConstMetric(f.desc, prometheus.GaugeValue, float64(n))
	}

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up)
}
