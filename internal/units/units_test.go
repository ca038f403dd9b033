package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, unit := range ValidUnits {
		if !IsValid(unit) {
			t.Errorf("expected %q to be valid", unit)
		}
	}
	if IsValid("furlongs") {
		t.Error("expected 'furlongs' to be invalid")
	}
	if IsValid("") {
		t.Error("expected empty string to be invalid")
	}
}

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name  string
		mps   float64
		units string
		want  float64
	}{
		{"mps passthrough", 10, MPS, 10},
		{"to kmh", 10, KMPH, 36},
		{"to kph alias", 10, KPH, 36},
		{"to mph", 10, MPH, 22.3694},
		{"unknown unit defaults to mps", 10, "bogus", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertSpeed(tt.mps, tt.units)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ConvertSpeed(%v, %q) = %v, want %v", tt.mps, tt.units, got, tt.want)
			}
		})
	}
}

func TestKmhMpsRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1.5, 15, 30, 120} {
		if got := KmhFromMps(MpsFromKmh(v)); math.Abs(got-v) > 1e-9 {
			t.Errorf("round trip of %v km/h = %v", v, got)
		}
	}
	if got := KmhFromMps(10); math.Abs(got-36) > 1e-9 {
		t.Errorf("KmhFromMps(10) = %v, want 36", got)
	}
}
