package monitor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single line of a statistics file. The "intr" line of
// /proc/stat grows with the number of interrupt sources and easily passes
// bufio's 64 KiB default on large machines.
const maxLineSize = 1 << 20

// aggregateTag is the first token of the all-CPU line in /proc/stat.
const aggregateTag = "cpu"

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// ParseModeVector parses the first line of /proc/stat, the aggregate
// "cpu" line, into a ModeVector. Later lines are never read.
func ParseModeVector(r io.Reader) (ModeVector, error) {
	scanner := newLineScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading aggregate line: %w", err)
		}
		return nil, malformed("empty input")
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 || fields[0] != aggregateTag {
		return nil, malformed("first line is not the aggregate %q line", aggregateTag)
	}
	return parseModeFields(fields[1:])
}

// parseModeFields converts the numeric fields of a cpu line.
func parseModeFields(fields []string) (ModeVector, error) {
	if len(fields) < MinModes {
		return nil, malformed("insufficient fields: got %d, need at least %d", len(fields), MinModes)
	}

	v := make(ModeVector, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, malformed("field %d (%s): %v", i, ModeAt(i), err)
		}
		v[i] = n
	}
	return v, nil
}

// ParseScalarField scans /proc/stat style input for the first line whose
// first token equals name and returns the integer that follows it.
func ParseScalarField(r io.Reader, name string) (uint64, error) {
	scanner := newLineScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != name {
			continue
		}
		if len(fields) < 2 {
			return 0, malformed("%s: missing value", name)
		}
		n, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, malformed("%s: %v", name, err)
		}
		return n, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scanning for %s: %w", name, err)
	}
	return 0, fmt.Errorf("%w: %s", ErrFieldNotFound, name)
}

// ParseLoadAverages parses the first three tokens of /proc/loadavg.
func ParseLoadAverages(r io.Reader) (LoadAverages, error) {
	scanner := newLineScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return LoadAverages{}, fmt.Errorf("reading load averages: %w", err)
		}
		return LoadAverages{}, malformed("empty input")
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) < 3 {
		return LoadAverages{}, malformed("got %d load average fields, need 3", len(fields))
	}

	var loads [3]float64
	for i := range loads {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return LoadAverages{}, malformed("load average %d: %v", i, err)
		}
		loads[i] = f
	}
	return LoadAverages{One: loads[0], Five: loads[1], Fifteen: loads[2]}, nil
}

// perCoreFacts are cpuinfo keys whose value differs between logical CPUs.
// Keeping them would let later blocks overwrite the first CPU's identity.
var perCoreFacts = map[string]bool{
	"processor": true,
	"core id":   true,
}

// ParseFacts parses /proc/cpuinfo into Facts describing the first logical
// CPU. Tabs are stripped, each line is split at its first colon and both
// halves are trimmed. The first value seen for a key wins; per-core keys
// are dropped, as are lines with no colon or no value.
func ParseFacts(r io.Reader) (Facts, error) {
	facts := make(Facts)
	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := strings.ReplaceAll(scanner.Text(), "\t", "")
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" || perCoreFacts[key] {
			continue
		}
		if _, seen := facts[key]; !seen {
			facts[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning cpuinfo: %w", err)
	}
	return facts, nil
}
