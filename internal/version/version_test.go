package version

import "testing"

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.2.3"
	want := "tracestats 1.2.3 (commit unknown, built unknown)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
