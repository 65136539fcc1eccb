package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestSourceError(t *testing.T) {
	cause := errors.New("disk read failed")

	tests := []struct {
		name string
		err  *SourceError
		want string
	}{
		{
			name: "kind and cause",
			err:  NewSourceError(BackendLocal, FileStat, ErrSourceUnavailable, cause),
			want: "local stat: source unavailable: disk read failed",
		},
		{
			name: "kind only",
			err:  NewSourceError(BackendPortable, FileLoadavg, ErrFieldNotFound, nil),
			want: "portable loadavg: field not found",
		},
		{
			name: "cause already carries kind",
			err:  NewSourceError(BackendFS, FileCPUInfo, ErrMalformedData, malformed("line %d", 3)),
			want: "fs cpuinfo: malformed data: line 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, tt.err.Kind) {
				t.Errorf("errors.Is(err, %v) = false", tt.err.Kind)
			}
		})
	}
}

func TestSourceErrorUnwrap(t *testing.T) {
	cause := fs.ErrNotExist
	err := fmt.Errorf("first read: %w", NewSourceError(BackendLocal, FileStat, ErrSourceUnavailable, cause))

	if !errors.Is(err, ErrSourceUnavailable) {
		t.Error("errors.Is(err, ErrSourceUnavailable) = false")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is(err, fs.ErrNotExist) = false")
	}
	if errors.Is(err, ErrMalformedData) {
		t.Error("errors.Is(err, ErrMalformedData) = true")
	}
	se := AsSourceError(err)
	if se == nil || se.File != FileStat || se.Backend != BackendLocal {
		t.Errorf("AsSourceError() = %+v", se)
	}
	if AsSourceError(cause) != nil {
		t.Error("AsSourceError() found a SourceError in a plain error")
	}
}

func TestWrapSourceError(t *testing.T) {
	if WrapSourceError(BackendLocal, FileStat, nil) != nil {
		t.Error("WrapSourceError(nil) != nil")
	}

	plain := errors.New("boom")
	wrapped := WrapSourceError(BackendRemote, FileLoadavg, plain)
	if Kind(wrapped) != ErrSourceUnavailable {
		t.Errorf("Kind() = %v, want ErrSourceUnavailable for an error without kind", Kind(wrapped))
	}

	parse := WrapSourceError(BackendLocal, FileStat, malformed("short line"))
	if Kind(parse) != ErrMalformedData {
		t.Errorf("Kind() = %v, want ErrMalformedData kept", Kind(parse))
	}

	again := WrapSourceError(BackendPortable, FileCPUInfo, parse)
	if se := AsSourceError(again); se.Backend != BackendLocal || se.File != FileStat {
		t.Errorf("rewrapping changed the origin to %s %s", se.Backend, se.File)
	}
}

func TestKind(t *testing.T) {
	for _, k := range []error{
		ErrSourceUnavailable,
		ErrMalformedData,
		ErrFieldNotFound,
		ErrInsufficientSample,
		ErrInvalidDuration,
	} {
		if got := Kind(fmt.Errorf("context: %w", k)); got != k {
			t.Errorf("Kind(%v) = %v", k, got)
		}
	}
	if Kind(errors.New("other")) != nil {
		t.Error("Kind() of an unrelated error should be nil")
	}
}
