package platform

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"

	"github.com/opd-ai/go-cpustat/internal/monitor"
)

func newFakePortable() *PortableSource {
	return &PortableSource{
		times: func(context.Context, bool) ([]cpu.TimesStat, error) {
			return []cpu.TimesStat{{
				CPU: "cpu-total", User: 1.00, Nice: 0.10, System: 0.50, Idle: 8.00,
				Iowait: 0.20, Irq: 0.05, Softirq: 0.03, Steal: 0.02,
			}}, nil
		},
		info: func(context.Context) ([]cpu.InfoStat, error) {
			return []cpu.InfoStat{
				{
					CPU: 0, VendorID: "GenuineIntel", Family: "6", Model: "142",
					ModelName: "Intel(R) Core(TM) i7-8550U", Stepping: 10, CoreID: "0",
					Cores: 4, Mhz: 1800, CacheSize: 8192, Flags: []string{"fpu", "vme"},
				},
				{CPU: 1, VendorID: "GenuineIntel", CoreID: "1"},
			}, nil
		},
		avg: func(context.Context) (*load.AvgStat, error) {
			return &load.AvgStat{Load1: 0.5, Load5: 0.75, Load15: 1.2}, nil
		},
		misc: func(context.Context) (*load.MiscStat, error) {
			return &load.MiscStat{ProcsRunning: 3, ProcsBlocked: 1, ProcsCreated: 9000, Ctxt: 123456}, nil
		},
	}
}

func TestPortableSource_ReadModeVector(t *testing.T) {
	v, err := newFakePortable().ReadModeVector(context.Background())
	if err != nil {
		t.Fatalf("ReadModeVector() error = %v", err)
	}
	want := monitor.ModeVector{100, 10, 50, 800, 20, 5, 3, 2, 0, 0}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("ReadModeVector() = %v, want %v", v, want)
	}
}

func TestPortableSource_ReadScalarField(t *testing.T) {
	s := newFakePortable()
	tests := []struct {
		field   string
		want    uint64
		wantErr error
	}{
		{monitor.FieldProcsRunning, 3, nil},
		{monitor.FieldProcsBlocked, 1, nil},
		{"processes", 9000, nil},
		{"ctxt", 123456, nil},
		{"btime", 0, monitor.ErrFieldNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := s.ReadScalarField(context.Background(), tt.field)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadScalarField(%q) error = %v, want %v", tt.field, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ReadScalarField(%q) = %d, want %d", tt.field, got, tt.want)
			}
		})
	}
}

func TestPortableSource_ReadLoadAverages(t *testing.T) {
	got, err := newFakePortable().ReadLoadAverages(context.Background())
	if err != nil {
		t.Fatalf("ReadLoadAverages() error = %v", err)
	}
	if want := (monitor.LoadAverages{One: 0.5, Five: 0.75, Fifteen: 1.2}); got != want {
		t.Errorf("ReadLoadAverages() = %+v, want %+v", got, want)
	}
}

func TestPortableSource_ReadFacts(t *testing.T) {
	facts, err := newFakePortable().ReadFacts(context.Background())
	if err != nil {
		t.Fatalf("ReadFacts() error = %v", err)
	}
	want := monitor.Facts{
		"vendor_id":  "GenuineIntel",
		"cpu family": "6",
		"model":      "142",
		"model name": "Intel(R) Core(TM) i7-8550U",
		"stepping":   "10",
		"cpu cores":  "4",
		"cpu MHz":    "1800.000",
		"cache size": "8192 KB",
		"flags":      "fpu vme",
	}
	if !reflect.DeepEqual(facts, want) {
		t.Errorf("ReadFacts() = %v, want %v", facts, want)
	}
	if _, ok := facts["core id"]; ok {
		t.Error("ReadFacts() contains per-core key core id")
	}
}

func TestPortableSource_Errors(t *testing.T) {
	boom := errors.New("not implemented yet")
	s := &PortableSource{
		times: func(context.Context, bool) ([]cpu.TimesStat, error) { return nil, boom },
		info:  func(context.Context) ([]cpu.InfoStat, error) { return nil, boom },
		avg:   func(context.Context) (*load.AvgStat, error) { return nil, boom },
		misc:  func(context.Context) (*load.MiscStat, error) { return nil, boom },
	}
	ctx := context.Background()

	checks := map[string]func() error{
		"times": func() error { _, err := s.ReadModeVector(ctx); return err },
		"facts": func() error { _, err := s.ReadFacts(ctx); return err },
		"load":  func() error { _, err := s.ReadLoadAverages(ctx); return err },
		"misc":  func() error { _, err := s.ReadScalarField(ctx, monitor.FieldProcsRunning); return err },
	}
	for name, read := range checks {
		t.Run(name, func(t *testing.T) {
			err := read()
			if !errors.Is(err, monitor.ErrSourceUnavailable) || !errors.Is(err, boom) {
				t.Fatalf("error = %v, want ErrSourceUnavailable wrapping cause", err)
			}
			if se := monitor.AsSourceError(err); se == nil || se.Backend != monitor.BackendPortable {
				t.Errorf("SourceError = %+v, want portable backend", se)
			}
		})
	}
}

func TestPortableSource_NoTimes(t *testing.T) {
	s := newFakePortable()
	s.times = func(context.Context, bool) ([]cpu.TimesStat, error) { return nil, nil }
	if _, err := s.ReadModeVector(context.Background()); !errors.Is(err, monitor.ErrMalformedData) {
		t.Errorf("ReadModeVector() error = %v, want ErrMalformedData", err)
	}
}
