package geo

import (
	"math"
	"testing"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	if d := Distance(28.6129, 77.2295, 28.6129, 77.2295); d != 0 {
		t.Fatalf("Distance(same point) = %v, want 0", d)
	}
}

func TestDistanceDelhiGurgaon(t *testing.T) {
	// India Gate to Cyber Hub is roughly 19 km as the crow flies.
	d := Distance(28.6129, 77.2295, 28.4951, 77.0890)
	if d < 18 || d > 20 {
		t.Fatalf("Distance = %v km, want roughly 19", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := Distance(28.6129, 77.2295, 28.4951, 77.0890)
	b := Distance(28.4951, 77.0890, 28.6129, 77.2295)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("Distance is not symmetric: %v vs %v", a, b)
	}
}

func TestETALabels(t *testing.T) {
	tests := []struct {
		distanceKm float64
		speedKmh   float64
		minutes    int
		label      string
	}{
		{15, 30, 30, "30 min"},
		{60, 30, 120, "2 hr"},
		{75, 30, 150, "2 hr 30 min"},
		{0.4, 30, 0, "0 min"},
		{45, 30, 90, "1 hr 30 min"},
		{30, 30, 60, "1 hr"},
	}
	for _, tt := range tests {
		mins, label := ETA(tt.distanceKm, tt.speedKmh)
		if mins != tt.minutes || label != tt.label {
			t.Errorf("ETA(%v, %v) = (%d, %q), want (%d, %q)",
				tt.distanceKm, tt.speedKmh, mins, label, tt.minutes, tt.label)
		}
	}
}

func TestETAFallsBackToDefaultSpeed(t *testing.T) {
	mins, _ := ETA(15, 0)
	if mins != 30 {
		t.Fatalf("ETA(15, 0) = %d min, want 30 at the default speed", mins)
	}
}
