package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sampler measures CPU mode percentages over a sampling window by reading
// the aggregate tick counters twice, a given duration apart.
//
// The two reads are independent opens of the source, so the counters are
// not separated by exactly the requested duration: scheduling jitter and
// the latency of the second read widen the window. Window.Elapsed records
// the measured gap so callers can report the error bar.
type Sampler struct {
	source CounterSource
	logger *slog.Logger
	now    func() time.Time
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(logger *slog.Logger) SamplerOption {
	return func(s *Sampler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// withClock replaces the wall clock used to measure Window.Elapsed.
func withClock(now func() time.Time) SamplerOption {
	return func(s *Sampler) {
		s.now = now
	}
}

// NewSampler creates a Sampler reading from source.
func NewSampler(source CounterSource, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		source: source,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window is the result of one delta sample.
type Window struct {
	// Before and After are the two counter snapshots.
	Before ModeVector
	After  ModeVector
	// Delta is After minus Before, zero padded to the longer length.
	Delta ModeDelta
	// Requested is the sleep duration asked for.
	Requested time.Duration
	// Elapsed is the wall-clock time between the start of the first read
	// and the end of the second. It is never less than Requested.
	Elapsed time.Duration
}

// Total returns the sum of all deltas, optional modes included.
func (w Window) Total() int64 {
	return w.Delta.Total()
}

// Percentages converts the window into canonical mode percentages.
func (w Window) Percentages() (Percentages, error) {
	return ComputePercentages(w.Delta)
}

// AllPercentages is like Percentages but also includes the optional
// trailing modes under their positional names. With it the values sum to
// 100 even when steal or guest time was recorded.
func (w Window) AllPercentages() (map[Mode]float64, error) {
	total := w.Delta.Total()
	if total <= 0 {
		return nil, insufficient(total)
	}
	all := make(map[Mode]float64, len(w.Delta))
	for i, d := range w.Delta {
		all[ModeAt(i)] = 100 * float64(d) / float64(total)
	}
	return all, nil
}

// Extra returns the deltas of the optional trailing modes, keyed by their
// positional names. It returns nil when the kernel reported none.
func (w Window) Extra() map[Mode]int64 {
	if len(w.Delta) <= MinModes {
		return nil
	}
	extra := make(map[Mode]int64, len(w.Delta)-MinModes)
	for i := MinModes; i < len(w.Delta); i++ {
		extra[ModeAt(i)] = w.Delta[i]
	}
	return extra
}

// Sample reads the counters, waits for d, reads them again and returns the
// share of the elapsed CPU time spent in each canonical mode.
//
// It fails with ErrInsufficientSample when no ticks were accounted during
// the window, and with the context's error if ctx ends during the wait. A
// failed sample never returns a partial result.
func (s *Sampler) Sample(ctx context.Context, d time.Duration) (Percentages, error) {
	w, err := s.SampleDelta(ctx, d)
	if err != nil {
		return nil, err
	}
	p, err := w.Percentages()
	if err != nil {
		s.logger.Debug("sample window too small", "requested", d, "elapsed", w.Elapsed, "total", w.Total())
		return nil, err
	}
	return p, nil
}

// SampleDelta performs the two reads of a sample and returns the raw
// window without converting it to percentages.
func (s *Sampler) SampleDelta(ctx context.Context, d time.Duration) (Window, error) {
	if d <= 0 {
		return Window{}, fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}

	start := s.now()
	before, err := s.source.ReadModeVector(ctx)
	if err != nil {
		return Window{}, fmt.Errorf("first read: %w", err)
	}
	s.logger.Debug("read counters", "phase", "before", "modes", len(before))

	if err := sleep(ctx, d); err != nil {
		return Window{}, fmt.Errorf("waiting %v between reads: %w", d, err)
	}

	after, err := s.source.ReadModeVector(ctx)
	if err != nil {
		return Window{}, fmt.Errorf("second read: %w", err)
	}
	elapsed := s.now().Sub(start)
	s.logger.Debug("read counters", "phase", "after", "modes", len(after), "elapsed", elapsed)

	return Window{
		Before:    before,
		After:     after,
		Delta:     Delta(before, after),
		Requested: d,
		Elapsed:   elapsed,
	}, nil
}

// Delta subtracts before from after element by element. The shorter vector
// is padded with zeros, so a kernel that starts reporting an extra mode
// between the reads does not cause a failure.
func Delta(before, after ModeVector) ModeDelta {
	n := max(len(before), len(after))
	delta := make(ModeDelta, n)
	for i := range delta {
		var b, a uint64
		if i < len(before) {
			b = before[i]
		}
		if i < len(after) {
			a = after[i]
		}
		delta[i] = int64(a - b)
	}
	return delta
}

// ComputePercentages converts a delta into canonical mode percentages. The
// divisor is the sum of every element, optional modes included, so the
// canonical values sum to less than 100 when optional modes advanced.
func ComputePercentages(delta ModeDelta) (Percentages, error) {
	total := delta.Total()
	if total <= 0 {
		return nil, insufficient(total)
	}
	p := make(Percentages, len(CanonicalModes))
	for i, m := range CanonicalModes {
		var d int64
		if i < len(delta) {
			d = delta[i]
		}
		p[m] = 100 * float64(d) / float64(total)
	}
	return p, nil
}

func insufficient(total int64) error {
	return fmt.Errorf("%w: total tick delta is %d", ErrInsufficientSample, total)
}

// sleep waits for d or until ctx is done. A timer never fires early, so the
// wait does not undershoot d.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
