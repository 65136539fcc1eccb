package monitor

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrSourceUnavailable means a statistics file could not be opened
	// (missing, permission denied, unsupported platform, remote host down).
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedData means a file was read but its contents did not have
	// the expected token or field shape.
	ErrMalformedData = errors.New("malformed data")
	// ErrFieldNotFound means a named scalar record was absent.
	ErrFieldNotFound = errors.New("field not found")
	// ErrInsufficientSample means the sampled deltas summed to zero, so no
	// percentage can be computed. Retry with a longer duration.
	ErrInsufficientSample = errors.New("insufficient sample")
	// ErrInvalidDuration means a non-positive sampling duration was requested.
	ErrInvalidDuration = errors.New("invalid sampling duration")
)

// File names a statistics pseudo-file relative to the proc root.
type File string

const (
	FileStat    File = "stat"
	FileLoadavg File = "loadavg"
	FileCPUInfo File = "cpuinfo"
)

// Backend identifies which kind of CounterSource produced an error.
type Backend string

const (
	BackendLocal    Backend = "local"
	BackendRemote   Backend = "remote"
	BackendPortable Backend = "portable"
	BackendFS       Backend = "fs"
)

// SourceError wraps a source failure with the file and backend involved.
// It unwraps to both the error kind and the underlying cause.
type SourceError struct {
	Backend Backend
	File    File
	Kind    error
	Err     error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s %s: %v", e.Backend, e.File, e.Kind)
	case errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s %s: %v", e.Backend, e.File, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v: %v", e.Backend, e.File, e.Kind, e.Err)
	}
}

// Unwrap returns the error kind and the underlying cause for errors.Is and
// errors.As.
func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewSourceError creates a SourceError. kind should be one of the package
// error kinds.
func NewSourceError(backend Backend, file File, kind, err error) *SourceError {
	return &SourceError{
		Backend: backend,
		File:    file,
		Kind:    kind,
		Err:     err,
	}
}

// WrapSourceError attaches backend and file to a parse or read error, keeping
// the kind the error already carries. Errors without a kind are treated as
// read failures of the source itself.
func WrapSourceError(backend Backend, file File, err error) error {
	if err == nil {
		return nil
	}
	if AsSourceError(err) != nil {
		return err
	}
	kind := Kind(err)
	if kind == nil {
		kind = ErrSourceUnavailable
	}
	return NewSourceError(backend, file, kind, err)
}

// AsSourceError extracts a SourceError from err, or returns nil.
func AsSourceError(err error) *SourceError {
	var se *SourceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// Kind returns the package error kind wrapped by err, or nil if err does
// not carry one.
func Kind(err error) error {
	for _, k := range []error{
		ErrSourceUnavailable,
		ErrMalformedData,
		ErrFieldNotFound,
		ErrInsufficientSample,
		ErrInvalidDuration,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// malformed builds an ErrMalformedData error for parse failures that are
// not yet tied to a file. Sources attach the file via NewSourceError.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedData, fmt.Sprintf(format, args...))
}
