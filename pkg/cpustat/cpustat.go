package cpustat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-cpustat/internal/config"
	"github.com/opd-ai/go-cpustat/internal/monitor"
	"github.com/opd-ai/go-cpustat/internal/platform"
)

// Client samples CPU utilization and reads the related kernel counters
// from the backend selected by its configuration.
//
// Client is safe for concurrent use. A configuration reload swaps the
// backend between calls; a call already in progress finishes against the
// backend it started with.
type Client struct {
	mu      sync.RWMutex
	cfg     config.Config
	source  monitor.CounterSource
	owned   bool
	sampler *monitor.Sampler
	facts   *monitor.FactReader
	closed  bool

	logger        Logger
	loggerOwned   bool
	metrics       *Metrics
	configPath    string
	configure     func(*config.Config) error
	watchConfig   bool
	watchDebounce time.Duration

	started     time.Time
	lastSuccess atomic.Int64
	failures    atomic.Int32
	reloadErr   atomic.Value
}

// New creates a Client from cfg. A nil cfg uses config.DefaultConfig.
// Remote sources are connected before New returns.
func New(cfg *config.Config, opts *Options) (*Client, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if cfg == nil {
		defaults := config.DefaultConfig()
		cfg = &defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:           *cfg,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		watchConfig:   opts.WatchConfig,
		watchDebounce: opts.WatchDebounce,
		started:       time.Now(),
	}
	if c.logger == nil {
		c.logger = NewLogger(os.Stderr, cfg.Log)
		c.loggerOwned = true
	}
	if c.metrics == nil {
		c.metrics = NewMetrics()
	}

	if opts.Source != nil {
		c.source = opts.Source
	} else {
		src, err := openSource(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		c.source = src
		c.owned = true
	}
	c.bind()

	c.logger.Info("source opened", "source", describeSource(c.source))
	return c, nil
}

// NewFromFile creates a Client from a configuration file in any supported
// format. With Options.WatchConfig set, Watch reloads the file when it
// changes.
func NewFromFile(path string, opts *Options) (*Client, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	var overrides []func(*config.Config) error
	if opts.Configure != nil {
		overrides = append(overrides, opts.Configure)
	}
	cfg, err := config.LoadFile(path, overrides...)
	if err != nil {
		return nil, err
	}
	c, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}
	c.configPath = path
	c.configure = opts.Configure
	return c, nil
}

// bind rebuilds the sampler and fact reader for the current source.
// Callers hold c.mu for writing or own c exclusively.
func (c *Client) bind() {
	var samplerOpts []monitor.SamplerOption
	if l := slogFor(c.logger); l != nil {
		samplerOpts = append(samplerOpts, monitor.WithLogger(l))
	}
	c.sampler = monitor.NewSampler(c.source, samplerOpts...)
	c.facts = monitor.NewFactReader(c.source)
}

// openSource builds the backend selected by cfg.
func openSource(ctx context.Context, cfg *config.Config) (monitor.CounterSource, error) {
	sc, err := sourceConfig(cfg)
	if err != nil {
		return nil, err
	}
	return platform.NewSource(ctx, sc)
}

// sourceConfig maps the file configuration onto the platform factory's.
func sourceConfig(cfg *config.Config) (platform.SourceConfig, error) {
	kind, err := platform.ParseKind(cfg.Source.Kind)
	if err != nil {
		return platform.SourceConfig{}, err
	}
	sc := platform.SourceConfig{
		Kind:     kind,
		ProcRoot: cfg.Source.ProcRoot,
	}
	if kind != platform.KindRemote {
		return sc, nil
	}

	r := cfg.Remote
	sc.Remote = platform.RemoteConfig{
		Host:                  r.Host,
		Port:                  r.Port,
		User:                  r.User,
		KnownHostsPath:        r.KnownHosts,
		InsecureIgnoreHostKey: r.Insecure,
		ProcRoot:              r.ProcRoot,
		CommandTimeout:        r.Timeout,
	}
	switch {
	case r.IdentityFile != "":
		sc.Remote.AuthMethod = platform.KeyAuth{PrivateKeyPath: r.IdentityFile, Passphrase: r.Passphrase}
	case r.Password != "":
		sc.Remote.AuthMethod = platform.PasswordAuth{Password: r.Password}
	case r.UseAgent:
		sc.Remote.AuthMethod = platform.AgentAuth{}
	}
	return sc, nil
}

func describeSource(src monitor.CounterSource) string {
	switch s := src.(type) {
	case *platform.RemoteSource:
		return "remote " + s.Address()
	case *platform.PortableSource:
		return string(monitor.BackendPortable)
	case interface{ Backend() monitor.Backend }:
		return string(s.Backend())
	default:
		return fmt.Sprintf("%T", src)
	}
}

// state returns the current sampler and fact reader.
func (c *Client) state() (*monitor.Sampler, *monitor.FactReader, config.Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, nil, config.Config{}, ErrClosed
	}
	return c.sampler, c.facts, c.cfg, nil
}

// log returns the current logger, which a reload may replace.
func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Config returns a copy of the active configuration.
func (c *Client) Config() config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Sample measures mode percentages over a window of d. A zero d uses the
// configured sample duration.
func (c *Client) Sample(ctx context.Context, d time.Duration) (monitor.Percentages, error) {
	w, err := c.SampleDelta(ctx, d)
	if err != nil {
		return nil, err
	}
	p, err := w.Percentages()
	if err != nil {
		c.metrics.IncrementInsufficientSamples()
		return nil, err
	}
	c.metrics.SetUtilization(p.Utilization())
	return p, nil
}

// SampleDelta performs the two reads of a sample and returns the raw
// window. A zero d uses the configured sample duration.
func (c *Client) SampleDelta(ctx context.Context, d time.Duration) (monitor.Window, error) {
	sampler, _, cfg, err := c.state()
	if err != nil {
		return monitor.Window{}, err
	}
	if d == 0 {
		d = cfg.Sample.Duration
	}

	w, err := sampler.SampleDelta(ctx, d)
	if err != nil {
		c.countError(err)
		return monitor.Window{}, err
	}
	c.markSuccess()
	c.metrics.IncrementSamples()
	c.metrics.RecordWindow(w.Requested, w.Elapsed)
	return w, nil
}

// Times returns the current cumulative mode counters.
func (c *Client) Times(ctx context.Context) (monitor.ModeVector, error) {
	return readFact(c, ctx, (*monitor.FactReader).Times)
}

// ProcsRunning returns the number of runnable processes.
func (c *Client) ProcsRunning(ctx context.Context) (uint64, error) {
	return readFact(c, ctx, (*monitor.FactReader).ProcsRunning)
}

// ProcsBlocked returns the number of processes blocked on I/O.
func (c *Client) ProcsBlocked(ctx context.Context) (uint64, error) {
	return readFact(c, ctx, (*monitor.FactReader).ProcsBlocked)
}

// LoadAverages returns the 1, 5 and 15 minute load averages.
func (c *Client) LoadAverages(ctx context.Context) (monitor.LoadAverages, error) {
	return readFact(c, ctx, (*monitor.FactReader).LoadAverages)
}

// CPUInfo returns the facts of the first logical CPU.
func (c *Client) CPUInfo(ctx context.Context) (monitor.Facts, error) {
	return readFact(c, ctx, (*monitor.FactReader).CPUInfo)
}

func readFact[T any](c *Client, ctx context.Context, read func(*monitor.FactReader, context.Context) (T, error)) (T, error) {
	var zero T
	_, facts, _, err := c.state()
	if err != nil {
		return zero, err
	}
	v, err := read(facts, ctx)
	if err != nil {
		c.countError(err)
		return zero, err
	}
	c.markSuccess()
	c.metrics.IncrementFactReads()
	return v, nil
}

func (c *Client) countError(err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	case errors.Is(err, ErrInvalidDuration):
	default:
		c.failures.Add(1)
		c.metrics.IncrementReadErrors()
		c.log().Debug("read failed", "error", err)
	}
}

func (c *Client) markSuccess() {
	c.lastSuccess.Store(time.Now().UnixNano())
	c.failures.Store(0)
}

// Report samples one window with the configured duration and reads every
// other counter and fact.
func (c *Client) Report(ctx context.Context) (*Report, error) {
	_, _, cfg, err := c.state()
	if err != nil {
		return nil, err
	}

	w, err := c.SampleDelta(ctx, cfg.Sample.Duration)
	if err != nil {
		return nil, err
	}
	all, err := w.AllPercentages()
	if err != nil {
		c.metrics.IncrementInsufficientSamples()
		return nil, err
	}
	pct, err := w.Percentages()
	if err != nil {
		return nil, err
	}
	c.metrics.SetUtilization(pct.Utilization())

	r := &Report{
		Timestamp:   time.Now(),
		Requested:   w.Requested,
		Elapsed:     w.Elapsed,
		Utilization: pct.Utilization(),
		Percentages: pct,
		Times:       w.After,
	}
	c.mu.RLock()
	r.Source = describeSource(c.source)
	c.mu.RUnlock()

	for m := range w.Extra() {
		if r.Extra == nil {
			r.Extra = make(map[monitor.Mode]float64)
		}
		r.Extra[m] = all[m]
	}

	if r.Info, err = c.CPUInfo(ctx); err != nil {
		return nil, err
	}
	r.Cores = r.Info.Cores()
	if r.ProcsRunning, err = c.ProcsRunning(ctx); err != nil {
		return nil, err
	}
	if r.ProcsBlocked, err = c.ProcsBlocked(ctx); err != nil {
		return nil, err
	}
	if r.Load, err = c.LoadAverages(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// ReloadConfig re-reads the configuration file. When the source settings
// changed, a new backend is opened and the old one is closed. On error the
// previous configuration stays active.
func (c *Client) ReloadConfig() error {
	if c.configPath == "" {
		return ErrNoConfigFile
	}
	if err := c.reload(context.Background()); err != nil {
		c.reloadErr.Store(reloadError{err})
		c.metrics.IncrementConfigErrors()
		return err
	}
	c.reloadErr.Store(reloadError{})
	c.metrics.IncrementConfigReloads()
	return nil
}

func (c *Client) reload(ctx context.Context) error {
	var overrides []func(*config.Config) error
	if c.configure != nil {
		overrides = append(overrides, c.configure)
	}
	cfg, err := config.LoadFile(c.configPath, overrides...)
	if err != nil {
		return err
	}

	c.mu.RLock()
	closed := c.closed
	sourceChanged := c.owned && (cfg.Source != c.cfg.Source || cfg.Remote != c.cfg.Remote)
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	var src monitor.CounterSource
	if sourceChanged {
		if src, err = openSource(ctx, cfg); err != nil {
			return fmt.Errorf("opening reloaded source: %w", err)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if src != nil {
			platform.CloseSource(src)
		}
		return ErrClosed
	}
	old := c.source
	c.cfg = *cfg
	if c.loggerOwned {
		c.logger = NewLogger(os.Stderr, cfg.Log)
	}
	if src != nil {
		c.source = src
	}
	c.bind()
	c.mu.Unlock()

	if src != nil {
		if err := platform.CloseSource(old); err != nil {
			c.log().Warn("closing previous source", "error", err)
		}
	}
	c.log().Info("configuration reloaded", "path", c.configPath, "source_changed", sourceChanged)
	return nil
}

// reloadError boxes the last reload result; atomic.Value needs one
// concrete type.
type reloadError struct{ error }

// WatchFunc receives each report produced by Watch, or the error of a
// window that failed. Returning a non-nil error stops Watch.
type WatchFunc func(*Report, error) error

// Watch produces reports until ctx is done, fn returns an error, or the
// configured sample count is reached. Consecutive windows are separated by
// the configured interval. Watch returns nil when ctx ends.
//
// With Options.WatchConfig set on a client created by NewFromFile, the
// configuration file is reloaded whenever it changes while Watch runs.
func (c *Client) Watch(ctx context.Context, fn WatchFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.watchConfig && c.configPath != "" {
		w, err := newConfigWatcher(c.configPath, c.watchDebounce, c.ReloadConfig, func(err error) {
			c.log().Warn("configuration reload failed", "path", c.configPath, "error", err)
		})
		if err != nil {
			return fmt.Errorf("watching configuration: %w", err)
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			w.run(ctx)
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	for n := 0; ; n++ {
		_, _, cfg, err := c.state()
		if err != nil {
			return err
		}
		if cfg.Sample.Count > 0 && n >= cfg.Sample.Count {
			return nil
		}
		if n > 0 && cfg.Sample.Interval > 0 {
			if err := pause(ctx, cfg.Sample.Interval); err != nil {
				return nil
			}
		}

		r, err := c.Report(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err := fn(r, err); err != nil {
			return err
		}
	}
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns the client's operational metrics.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Collector returns a Prometheus collector reading from the client's
// current source.
func (c *Client) Collector() *Collector {
	return NewCollector(func() monitor.CounterSource {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.source
	}, c.log())
}

// Close releases the source if the client opened it. Further calls return
// ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.owned {
		return platform.CloseSource(c.source)
	}
	return nil
}
