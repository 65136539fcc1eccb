package platform

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"

	"github.com/opd-ai/go-cpustat/internal/monitor"
)

// userHZ converts gopsutil's seconds back into kernel ticks. USER_HZ is
// 100 on every platform Go supports.
const userHZ = 100

// PortableSource is a CounterSource backed by gopsutil, for hosts where the
// /proc text files are not available (macOS, the BSDs, Windows) or not
// mounted where expected.
type PortableSource struct {
	times func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
	info  func(ctx context.Context) ([]cpu.InfoStat, error)
	avg   func(ctx context.Context) (*load.AvgStat, error)
	misc  func(ctx context.Context) (*load.MiscStat, error)
}

// NewPortableSource returns a gopsutil backed source.
func NewPortableSource() *PortableSource {
	return &PortableSource{
		times: cpu.TimesWithContext,
		info:  cpu.InfoWithContext,
		avg:   load.AvgWithContext,
		misc:  load.MiscWithContext,
	}
}

// ReadModeVector implements monitor.CounterSource. The aggregate times are
// reported in ticks, in canonical order followed by steal, guest and
// guest_nice.
func (s *PortableSource) ReadModeVector(ctx context.Context) (monitor.ModeVector, error) {
	stats, err := s.times(ctx, false)
	if err != nil {
		return nil, s.unavailable(monitor.FileStat, err)
	}
	if len(stats) == 0 {
		return nil, s.malformed(monitor.FileStat, "no aggregate cpu times")
	}

	t := stats[0]
	seconds := [...]float64{
		t.User, t.Nice, t.System, t.Idle, t.Iowait, t.Irq, t.Softirq,
		t.Steal, t.Guest, t.GuestNice,
	}
	v := make(monitor.ModeVector, len(seconds))
	for i, sec := range seconds {
		if sec < 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
			return nil, s.malformed(monitor.FileStat, fmt.Sprintf("field %d (%s): invalid value %v", i, monitor.ModeAt(i), sec))
		}
		v[i] = uint64(math.Round(sec * userHZ))
	}
	return v, nil
}

// ReadScalarField implements monitor.CounterSource for the /proc/stat
// records gopsutil exposes.
func (s *PortableSource) ReadScalarField(ctx context.Context, name string) (uint64, error) {
	misc, err := s.misc(ctx)
	if err != nil {
		return 0, s.unavailable(monitor.FileStat, err)
	}

	var n int
	switch name {
	case monitor.FieldProcsRunning:
		n = misc.ProcsRunning
	case monitor.FieldProcsBlocked:
		n = misc.ProcsBlocked
	case "processes":
		n = misc.ProcsCreated
	case "ctxt":
		n = misc.Ctxt
	default:
		return 0, monitor.NewSourceError(monitor.BackendPortable, monitor.FileStat, monitor.ErrFieldNotFound, fmt.Errorf("%s", name))
	}
	if n < 0 {
		return 0, s.malformed(monitor.FileStat, fmt.Sprintf("%s: negative value %d", name, n))
	}
	return uint64(n), nil
}

// ReadLoadAverages implements monitor.CounterSource.
func (s *PortableSource) ReadLoadAverages(ctx context.Context) (monitor.LoadAverages, error) {
	avg, err := s.avg(ctx)
	if err != nil {
		return monitor.LoadAverages{}, s.unavailable(monitor.FileLoadavg, err)
	}
	if avg == nil {
		return monitor.LoadAverages{}, s.malformed(monitor.FileLoadavg, "no load averages")
	}
	return monitor.LoadAverages{One: avg.Load1, Five: avg.Load5, Fifteen: avg.Load15}, nil
}

// ReadFacts implements monitor.CounterSource. The first CPU's fields are
// mapped onto the key names /proc/cpuinfo uses.
func (s *PortableSource) ReadFacts(ctx context.Context) (monitor.Facts, error) {
	infos, err := s.info(ctx)
	if err != nil {
		return nil, s.unavailable(monitor.FileCPUInfo, err)
	}
	if len(infos) == 0 {
		return monitor.Facts{}, nil
	}

	i := infos[0]
	facts := make(monitor.Facts)
	set := func(key, value string) {
		if value != "" {
			facts[key] = value
		}
	}
	set("vendor_id", i.VendorID)
	set("cpu family", i.Family)
	set("model", i.Model)
	set("model name", i.ModelName)
	set("physical id", i.PhysicalID)
	set("microcode", i.Microcode)
	set("flags", strings.Join(i.Flags, " "))
	if i.Stepping > 0 {
		set("stepping", strconv.Itoa(int(i.Stepping)))
	}
	if i.Cores > 0 {
		set("cpu cores", strconv.Itoa(int(i.Cores)))
	}
	if i.Mhz > 0 {
		set("cpu MHz", strconv.FormatFloat(i.Mhz, 'f', 3, 64))
	}
	if i.CacheSize > 0 {
		set("cache size", fmt.Sprintf("%d KB", i.CacheSize))
	}
	return facts, nil
}

func (s *PortableSource) unavailable(file monitor.File, err error) error {
	return monitor.NewSourceError(monitor.BackendPortable, file, monitor.ErrSourceUnavailable, err)
}

func (s *PortableSource) malformed(file monitor.File, msg string) error {
	return monitor.NewSourceError(monitor.BackendPortable, file, monitor.ErrMalformedData, fmt.Errorf("%s", msg))
}
