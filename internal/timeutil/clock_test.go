package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)
	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("got %v, want %v", got, start)
	}

	clock.Advance(90 * time.Second)
	if got, want := clock.Now(), start.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("after Advance got %v, want %v", got, want)
	}

	later := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Errorf("after Set got %v, want %v", got, later)
	}
}

func TestClockInterface(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = (*MockClock)(nil)
}
