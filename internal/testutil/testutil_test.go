package testutil

import (
	"os"
	"testing"

	"github.com/banshee-data/tracestats/internal/monitoring"
	"github.com/banshee-data/tracestats/internal/trace"
)

func TestSamples(t *testing.T) {
	tf := Samples(t)
	if tf.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", tf.Len())
	}
	types, err := tf.Frame().Strings(trace.ColType)
	AssertNoError(t, err)
	if types[0] != "passenger car" || types[5] != "truck" {
		t.Errorf("types = %v", types)
	}
}

func TestLaneChanges(t *testing.T) {
	tf := ParseTrace(t, "lc.trc", LaneChangesCSV)
	from, err := tf.Frame().Ints(trace.ColFromLane)
	AssertNoError(t, err)
	if len(from) != 2 || from[0] != 1 || from[1] != 2 {
		t.Errorf("fromln = %v", from)
	}
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "a.trc", "x")
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	if string(data) != "x" {
		t.Errorf("content = %q", data)
	}
	_, err = os.ReadFile(path + ".missing")
	AssertError(t, err)
}

func TestCaptureLogs(t *testing.T) {
	lines := CaptureLogs(t)
	monitoring.Logf("dropped %d", 3)
	if len(*lines) != 1 || (*lines)[0] != "dropped %d" {
		t.Errorf("captured %v", *lines)
	}
}
