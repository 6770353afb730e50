package units

import (
	"math"
	"testing"
)

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		conv Conversion
		si   float64
		want float64
	}{
		{"4 s to h", Time, 4, 4.0 / 3600.0},
		{"one hour", Time, 3600, 1},
		{"40 m to km", Distance, 40, 0.04},
		{"10 m/s to km/h", Speed, 10, 36},
		{"0.004 /m to /km", Density, 0.004, 4},
		{"0.04 /s to /h", Flow, 0.04, 144},
		{"count", Count, 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.conv.Apply(tt.si)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Apply(%g) = %g, want %g", tt.si, got, tt.want)
			}
		})
	}
}

func TestUnitLabels(t *testing.T) {
	pairs := map[Conversion][2]string{
		Time:     {"s", "h"},
		Distance: {"m", "km"},
		Speed:    {"m/s", "km/h"},
		Density:  {"/m", "/km"},
		Flow:     {"/s", "/h"},
		Count:    {"-", "-"},
	}
	for conv, want := range pairs {
		if conv.SI != want[0] || conv.Preferred != want[1] {
			t.Errorf("conversion %+v, want SI %q preferred %q", conv, want[0], want[1])
		}
	}
}
