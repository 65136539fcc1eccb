package cpustat

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/opd-ai/go-cpustat/internal/monitor"
)

// Report is one complete reading: a sampling window plus the single-shot
// counters and facts read right after it.
type Report struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`

	// Requested and Elapsed describe the sampling window.
	Requested time.Duration `json:"-"`
	Elapsed   time.Duration `json:"-"`

	Utilization float64             `json:"utilization"`
	Percentages monitor.Percentages `json:"percentages"`
	// Extra holds percentages of the optional trailing modes (steal,
	// guest, ...). It is empty when the kernel reports none.
	Extra map[monitor.Mode]float64 `json:"extra,omitempty"`

	// Times is the second counter snapshot of the window.
	Times monitor.ModeVector `json:"times"`

	Info         monitor.Facts        `json:"info"`
	Cores        int                  `json:"cores"`
	ProcsRunning uint64               `json:"procs_running"`
	ProcsBlocked uint64               `json:"procs_blocked"`
	Load         monitor.LoadAverages `json:"-"`
}

// MarshalJSON renders durations as seconds and the load averages as a
// three element array.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		*plain
		RequestedSeconds float64    `json:"requested_seconds"`
		ElapsedSeconds   float64    `json:"elapsed_seconds"`
		LoadAverage      [3]float64 `json:"load_average"`
	}{
		plain:            (*plain)(r),
		RequestedSeconds: r.Requested.Seconds(),
		ElapsedSeconds:   r.Elapsed.Seconds(),
		LoadAverage:      [3]float64{r.Load.One, r.Load.Five, r.Load.Fifteen},
	})
}

// WriteJSON writes r as one line of JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}

// WriteText writes r in a human readable layout.
func (r *Report) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("cpu utilization: %.2f%%\n", r.Utilization)
	ew.printf("cpu mode percents:\n")
	for _, m := range monitor.CanonicalModes {
		ew.printf("  %-10s %6.2f\n", m, r.Percentages[m])
	}
	for _, m := range slices.Sorted(maps.Keys(r.Extra)) {
		ew.printf("  %-10s %6.2f\n", m, r.Extra[m])
	}
	ew.printf("cpu times: %v\n", []uint64(r.Times))
	ew.printf("cpu info:\n")
	for _, k := range slices.Sorted(maps.Keys(r.Info)) {
		ew.printf("  %s: %s\n", k, r.Info[k])
	}
	ew.printf("num cores: %d\n", r.Cores)
	ew.printf("procs running: %d\n", r.ProcsRunning)
	ew.printf("procs blocked: %d\n", r.ProcsBlocked)
	ew.printf("load avg: %s\n", r.Load)
	ew.printf("window: %v (requested %v)\n", r.Elapsed.Round(time.Millisecond), r.Requested)
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
