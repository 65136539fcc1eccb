// Package monitor samples aggregate CPU utilization from the kernel's
// statistics pseudo-files (/proc/stat, /proc/loadavg, /proc/cpuinfo).
//
// The central type is Sampler, which reads the aggregate per-mode tick
// counters twice, a caller-chosen duration apart, and converts the
// difference into percentages of elapsed CPU time. FactReader provides the
// single-shot reads: raw tick counters, run-queue counts, load averages and
// static CPU facts. Both depend only on a CounterSource, so the same logic
// runs against the local /proc tree, a remote host or an in-memory fixture.
package monitor

import "strconv"

// Mode identifies a CPU scheduling mode as accounted by the kernel.
type Mode string

// Canonical modes, in the order the kernel reports them on the aggregate
// "cpu" line of /proc/stat.
const (
	ModeUser    Mode = "user"
	ModeNice    Mode = "nice"
	ModeSystem  Mode = "system"
	ModeIdle    Mode = "idle"
	ModeIOWait  Mode = "iowait"
	ModeIRQ     Mode = "irq"
	ModeSoftIRQ Mode = "softirq"
)

// Optional trailing modes. Older kernels omit them and newer kernels may
// append more; they are carried positionally and never interpreted.
const (
	ModeSteal     Mode = "steal"
	ModeGuest     Mode = "guest"
	ModeGuestNice Mode = "guest_nice"
)

// CanonicalModes is the fixed set of modes every ModeVector carries.
var CanonicalModes = [...]Mode{
	ModeUser, ModeNice, ModeSystem, ModeIdle, ModeIOWait, ModeIRQ, ModeSoftIRQ,
}

// MinModes is the minimum number of fields on a valid aggregate cpu line.
const MinModes = len(CanonicalModes)

var optionalModes = [...]Mode{ModeSteal, ModeGuest, ModeGuestNice}

// ModeAt returns the name of the mode at position i. Positions past the
// known optional modes are named "mode<i>".
func ModeAt(i int) Mode {
	switch {
	case i >= 0 && i < len(CanonicalModes):
		return CanonicalModes[i]
	case i >= len(CanonicalModes) && i < len(CanonicalModes)+len(optionalModes):
		return optionalModes[i-len(CanonicalModes)]
	default:
		return Mode("mode" + strconv.Itoa(i))
	}
}

// ModeVector holds cumulative tick counts since boot, one per mode, in
// canonical order followed by any optional trailing modes.
type ModeVector []uint64

// Get returns the tick count for a canonical mode, or 0 if absent.
func (v ModeVector) Get(m Mode) uint64 {
	for i, cm := range CanonicalModes {
		if cm == m && i < len(v) {
			return v[i]
		}
	}
	return 0
}

// Total returns the sum of all ticks in the vector, optional modes included.
func (v ModeVector) Total() uint64 {
	var total uint64
	for _, t := range v {
		total += t
	}
	return total
}

// ModeDelta holds the per-mode difference between two ModeVectors. Values
// are signed so that a counter wraparound shows up as a negative entry
// rather than an enormous unsigned one; percentages computed from such a
// delta are meaningless and are not corrected.
type ModeDelta []int64

// Total returns the sum of all elements, optional modes included.
func (d ModeDelta) Total() int64 {
	var total int64
	for _, t := range d {
		total += t
	}
	return total
}

// Percentages maps each canonical mode to the share of elapsed CPU time,
// in percent, spent in that mode.
type Percentages map[Mode]float64

// Utilization returns the share of time the CPU was not idle.
func (p Percentages) Utilization() float64 {
	return 100 - p[ModeIdle]
}

// LoadAverages holds the 1, 5 and 15 minute run-queue load averages.
type LoadAverages struct {
	One     float64
	Five    float64
	Fifteen float64
}

// ProcessCounts holds the number of runnable processes and the number of
// processes blocked waiting for I/O.
type ProcessCounts struct {
	Running uint64
	Blocked uint64
}

// Facts holds static properties of the first logical CPU as reported by
// /proc/cpuinfo (vendor_id, model name, cpu cores, flags, ...).
type Facts map[string]string

// Cores returns the "cpu cores" fact as an integer, or 0 when the fact is
// missing or not numeric.
func (f Facts) Cores() int {
	n, err := strconv.Atoi(f["cpu cores"])
	if err != nil {
		return 0
	}
	return n
}
