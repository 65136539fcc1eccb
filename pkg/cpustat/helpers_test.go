package cpustat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/opd-ai/go-cpustat/internal/monitor"
)

// stepSource advances its counters on every ReadModeVector call so that
// each window sees user 10%, system 5%, idle 80% and steal 5%.
type stepSource struct {
	mu sync.Mutex
	n  uint64

	failStat bool
	failLoad bool
}

func (s *stepSource) ReadModeVector(context.Context) (monitor.ModeVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStat {
		return nil, monitor.NewSourceError(monitor.BackendFS, monitor.FileStat, monitor.ErrSourceUnavailable, errors.New("gone"))
	}
	s.n++
	n := s.n
	return monitor.ModeVector{100 * n, 0, 50 * n, 800 * n, 0, 0, 0, 50 * n}, nil
}

func (s *stepSource) ReadScalarField(_ context.Context, name string) (uint64, error) {
	switch name {
	case monitor.FieldProcsRunning:
		return 3, nil
	case monitor.FieldProcsBlocked:
		return 1, nil
	}
	return 0, monitor.NewSourceError(monitor.BackendFS, monitor.FileStat, monitor.ErrFieldNotFound, errors.New(name))
}

func (s *stepSource) ReadLoadAverages(context.Context) (monitor.LoadAverages, error) {
	if s.failLoad {
		return monitor.LoadAverages{}, monitor.NewSourceError(monitor.BackendFS, monitor.FileLoadavg, monitor.ErrMalformedData, errors.New("bad"))
	}
	return monitor.LoadAverages{One: 0.5, Five: 1, Fifteen: 1.5}, nil
}

func (s *stepSource) ReadFacts(context.Context) (monitor.Facts, error) {
	return monitor.Facts{"vendor_id": "GenuineIntel", "cpu cores": "4"}, nil
}

// writeProcTree writes mock proc files into a temporary directory.
func writeProcTree(t *testing.T, stat string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"stat":    stat,
		"loadavg": "0.25 0.50 0.75 1/100 42\n",
		"cpuinfo": "processor\t: 0\nvendor_id\t: AuthenticAMD\ncpu cores\t: 2\n\nprocessor\t: 1\nvendor_id\t: AuthenticAMD\ncpu cores\t: 2\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write mock %s: %v", name, err)
		}
	}
	return dir
}
