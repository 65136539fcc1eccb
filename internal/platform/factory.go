package platform

import (
	"context"
	"fmt"
	"io"

	"github.com/opd-ai/go-cpustat/internal/monitor"
)

// NewSource creates the CounterSource described by cfg. Remote sources are
// connected before they are returned; release them with CloseSource.
func NewSource(ctx context.Context, cfg SourceConfig) (monitor.CounterSource, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = KindLocal
	}

	switch kind {
	case KindLocal:
		return monitor.NewProcSource(cfg.ProcRoot), nil
	case KindPortable:
		return NewPortableSource(), nil
	case KindAuto:
		if monitor.Available(cfg.ProcRoot) {
			return monitor.NewProcSource(cfg.ProcRoot), nil
		}
		return NewPortableSource(), nil
	case KindRemote:
		src, err := NewRemoteSource(cfg.Remote)
		if err != nil {
			return nil, fmt.Errorf("remote source: %w", err)
		}
		if err := src.Connect(ctx); err != nil {
			return nil, monitor.NewSourceError(monitor.BackendRemote, monitor.FileStat, monitor.ErrSourceUnavailable, err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported source: %s", kind)
	}
}

// CloseSource releases src if it holds resources. It is a no-op for
// sources that do not implement io.Closer.
func CloseSource(src monitor.CounterSource) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
