package monitor

import (
	"context"
	"fmt"
)

// Scalar record names in /proc/stat.
const (
	FieldProcsRunning = "procs_running"
	FieldProcsBlocked = "procs_blocked"
)

// FactReader performs single-shot reads against a CounterSource. It holds
// no state besides the source and is safe for concurrent use.
type FactReader struct {
	source CounterSource
}

// NewFactReader creates a FactReader reading from source.
func NewFactReader(source CounterSource) *FactReader {
	return &FactReader{source: source}
}

// Times returns the cumulative tick counters since boot, without any
// delta. Optional trailing modes are included.
func (r *FactReader) Times(ctx context.Context) (ModeVector, error) {
	return r.source.ReadModeVector(ctx)
}

// ProcsRunning returns the number of processes in a runnable state.
func (r *FactReader) ProcsRunning(ctx context.Context) (uint64, error) {
	return r.source.ReadScalarField(ctx, FieldProcsRunning)
}

// ProcsBlocked returns the number of processes blocked waiting for I/O.
func (r *FactReader) ProcsBlocked(ctx context.Context) (uint64, error) {
	return r.source.ReadScalarField(ctx, FieldProcsBlocked)
}

// ProcessCounts returns both run-queue counts. The two values come from
// separate reads and may straddle a scheduler change.
func (r *FactReader) ProcessCounts(ctx context.Context) (ProcessCounts, error) {
	running, err := r.ProcsRunning(ctx)
	if err != nil {
		return ProcessCounts{}, err
	}
	blocked, err := r.ProcsBlocked(ctx)
	if err != nil {
		return ProcessCounts{}, err
	}
	return ProcessCounts{Running: running, Blocked: blocked}, nil
}

// LoadAverages returns the 1, 5 and 15 minute load averages.
func (r *FactReader) LoadAverages(ctx context.Context) (LoadAverages, error) {
	return r.source.ReadLoadAverages(ctx)
}

// CPUInfo returns the facts describing the first logical CPU. The
// per-core keys "processor" and "core id" are never present.
func (r *FactReader) CPUInfo(ctx context.Context) (Facts, error) {
	facts, err := r.source.ReadFacts(ctx)
	if err != nil {
		return nil, err
	}
	for key := range perCoreFacts {
		delete(facts, key)
	}
	return facts, nil
}

// String formats load averages the way uptime(1) does.
func (l LoadAverages) String() string {
	return fmt.Sprintf("%.2f %.2f %.2f", l.One, l.Five, l.Fifteen)
}
