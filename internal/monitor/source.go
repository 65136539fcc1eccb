package monitor

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultProcRoot is where Linux mounts the proc filesystem.
const DefaultProcRoot = "/proc"

// CounterSource reads the kernel's aggregate CPU counters and related
// facts. Every call performs a fresh read; implementations keep no
// snapshot state, so a CounterSource is safe for concurrent use.
type CounterSource interface {
	// ReadModeVector reads the aggregate per-mode tick counters.
	ReadModeVector(ctx context.Context) (ModeVector, error)
	// ReadScalarField returns the integer value of the named /proc/stat
	// record (for example "procs_running").
	ReadScalarField(ctx context.Context, name string) (uint64, error)
	// ReadLoadAverages reads the 1, 5 and 15 minute load averages.
	ReadLoadAverages(ctx context.Context) (LoadAverages, error)
	// ReadFacts reads static facts about the first logical CPU.
	ReadFacts(ctx context.Context) (Facts, error)
}

// Opener opens one of the text statistics files. Each call must return a
// reader positioned at the start of a fresh read of the file.
type Opener interface {
	Open(ctx context.Context, file File) (io.ReadCloser, error)
}

// ProcSource is a CounterSource that parses the text layout of /proc
// files obtained from an Opener.
type ProcSource struct {
	opener  Opener
	backend Backend
}

// NewProcSource returns a source reading the proc tree rooted at root.
// An empty root means DefaultProcRoot.
func NewProcSource(root string) *ProcSource {
	if root == "" {
		root = DefaultProcRoot
	}
	return &ProcSource{opener: DirOpener(root), backend: BackendLocal}
}

// NewFSSource returns a source reading stat, loadavg and cpuinfo from the
// root of fsys. It is mainly useful with embedded fixtures.
func NewFSSource(fsys fs.FS) *ProcSource {
	return &ProcSource{opener: fsOpener{fsys: fsys}, backend: BackendFS}
}

// NewOpenerSource returns a source that reads through opener and reports
// errors as coming from backend.
func NewOpenerSource(opener Opener, backend Backend) *ProcSource {
	return &ProcSource{opener: opener, backend: backend}
}

// Backend reports which backend the source reads from.
func (s *ProcSource) Backend() Backend {
	return s.backend
}

// ReadModeVector implements CounterSource.
func (s *ProcSource) ReadModeVector(ctx context.Context) (ModeVector, error) {
	var v ModeVector
	err := s.withFile(ctx, FileStat, func(r io.Reader) error {
		var err error
		v, err = ParseModeVector(r)
		return err
	})
	return v, err
}

// ReadScalarField implements CounterSource.
func (s *ProcSource) ReadScalarField(ctx context.Context, name string) (uint64, error) {
	var n uint64
	err := s.withFile(ctx, FileStat, func(r io.Reader) error {
		var err error
		n, err = ParseScalarField(r, name)
		return err
	})
	return n, err
}

// ReadLoadAverages implements CounterSource.
func (s *ProcSource) ReadLoadAverages(ctx context.Context) (LoadAverages, error) {
	var l LoadAverages
	err := s.withFile(ctx, FileLoadavg, func(r io.Reader) error {
		var err error
		l, err = ParseLoadAverages(r)
		return err
	})
	return l, err
}

// ReadFacts implements CounterSource.
func (s *ProcSource) ReadFacts(ctx context.Context) (Facts, error) {
	var f Facts
	err := s.withFile(ctx, FileCPUInfo, func(r io.Reader) error {
		var err error
		f, err = ParseFacts(r)
		return err
	})
	return f, err
}

// withFile opens file, hands it to parse and closes it again.
func (s *ProcSource) withFile(ctx context.Context, file File, parse func(io.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return WrapSourceError(s.backend, file, err)
	}
	rc, err := s.opener.Open(ctx, file)
	if err != nil {
		return NewSourceError(s.backend, file, ErrSourceUnavailable, err)
	}
	defer rc.Close()

	return WrapSourceError(s.backend, file, parse(rc))
}

// DirOpener opens statistics files from a directory on the local
// filesystem, normally /proc.
type DirOpener string

// Open implements Opener.
func (d DirOpener) Open(_ context.Context, file File) (io.ReadCloser, error) {
	return os.Open(filepath.Join(string(d), string(file)))
}

type fsOpener struct {
	fsys fs.FS
}

func (o fsOpener) Open(_ context.Context, file File) (io.ReadCloser, error) {
	f, err := o.fsys.Open(string(file))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Available reports whether the stat file under root can be opened.
func Available(root string) bool {
	if root == "" {
		root = DefaultProcRoot
	}
	f, err := os.Open(filepath.Join(root, string(FileStat)))
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// IsUnavailable reports whether err means the source could not be opened.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
