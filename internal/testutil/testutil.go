// Package testutil provides shared test fixtures: small trace files, a
// matching project file, and helpers to load them.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/tracestats/internal/monitoring"
	"github.com/banshee-data/tracestats/internal/trace"
)

// SamplesCSV is a vehicle samples trace with two vehicles: id 1 spends 3 s
// and travels 30 m, id 2 spends 1 s and travels 10 m.
const SamplesCSV = `t (s),id,pos (m),v (m/s),lane,type
0,1,0,10,1,1
1,1,10,10,1,1
2,1,20,10,1,1
3,1,30,10,2,1
1,2,5,10,1,2
2,2,15,10,1,2
`

// LaneChangesCSV is a lane change trace with two changes.
const LaneChangesCSV = `t (s),id,pos (m),fromln,tolane,from a,to a
2.5,1,25,1,2,0.1,0.2
7.0,3,70,2,1,0.3,0.4
`

// ProjectFOS declares the vehicle types used by SamplesCSV.
const ProjectFOS = `FOSIM project
vehicle types: number  fraction  name
vehicle types 1: 0.80 passenger car
vehicle types 2: 0.20 truck
`

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// ParseTrace parses an in-memory trace and fails the test on error.
func ParseTrace(t *testing.T, name, content string, opts ...trace.Option) *trace.TraceFile {
	t.Helper()
	opts = append([]trace.Option{trace.WithName(name)}, opts...)
	tf, err := trace.Parse(strings.NewReader(content), opts...)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", name, err)
	}
	return tf
}

// Samples returns SamplesCSV parsed with vehicle type names applied.
func Samples(t *testing.T) *trace.TraceFile {
	t.Helper()
	entries, err := trace.ParseMetadata(strings.NewReader(ProjectFOS), trace.DefaultSections)
	if err != nil {
		t.Fatalf("failed to parse project file: %v", err)
	}
	return ParseTrace(t, "samples.trc", SamplesCSV, trace.WithLookup(trace.NewLookup(entries)))
}

// CaptureLogs redirects monitoring.Logf into the returned slice until the
// test ends.
func CaptureLogs(t *testing.T) *[]string {
	t.Helper()
	original := monitoring.Logf
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.Logf = original })
	return &lines
}
