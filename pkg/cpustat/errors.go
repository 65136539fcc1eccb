package cpustat

import (
	"errors"

	"github.com/opd-ai/go-cpustat/internal/monitor"
)

// Error kinds returned by Client methods. Test with errors.Is; the
// concrete error is usually a *monitor.SourceError naming the file and
// backend that failed.
var (
	ErrSourceUnavailable  = monitor.ErrSourceUnavailable
	ErrMalformedData      = monitor.ErrMalformedData
	ErrFieldNotFound      = monitor.ErrFieldNotFound
	ErrInsufficientSample = monitor.ErrInsufficientSample
	ErrInvalidDuration    = monitor.ErrInvalidDuration
)

// ErrClosed is returned by methods called after Close.
var ErrClosed = errors.New("cpustat: client closed")

// ErrNoConfigFile is returned by ReloadConfig when the client was not
// created from a file.
var ErrNoConfigFile = errors.New("cpustat: client has no configuration file")
