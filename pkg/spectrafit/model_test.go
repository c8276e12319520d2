package spectrafit

import (
	"math"
	"testing"
)

func TestLorentzNonNegative(t *testing.T) {
	cases := []struct {
		name   string
		x      float64
		center float64
		width  float64
	}{
		{"at center", 738, 738, 2},
		{"far tail", 500, 738, 2},
		{"negative width", 738.5, 738, -2},
		{"narrow line", 720.001, 720, 0.02},
		{"negative x", -10, 738, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Lorentz(tc.x, tc.center, tc.width)
			if got < 0 {
				t.Errorf("Lorentz(%g, %g, %g) = %g, want >= 0", tc.x, tc.center, tc.width, got)
			}
		})
	}
}

func TestLorentzNormalization(t *testing.T) {
	// Numeric integration over a window wide relative to the width should
	// recover essentially all of the unit mass.
	for _, width := range []float64{0.02, 0.5, 2} {
		center := 738.0
		span := 2000 * width
		n := 4000000
		dx := 2 * span / float64(n)
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += Lorentz(center-span+(float64(i)+0.5)*dx, center, width) * dx
		}
		if math.Abs(sum-1) > 1e-3 {
			t.Errorf("width %g: integral = %g, want 1 within 1e-3", width, sum)
		}
	}
}

func TestLorentzPeakHeight(t *testing.T) {
	// At the center the value is 2/(pi*width).
	got := Lorentz(738, 738, 2)
	want := 2 / (math.Pi * 2)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("peak height = %g, want %g", got, want)
	}
}

func TestOnePeakModel(t *testing.T) {
	x := []float64{737, 738, 739}
	got := OnePeakModel(x, 100, 738, 2, 5)
	for i, xi := range x {
		want := 5 + 100*Lorentz(xi, 738, 2)
		if got[i] != want {
			t.Errorf("x=%g: got %g, want %g", xi, got[i], want)
		}
	}
	if got[1] <= got[0] || got[1] <= got[2] {
		t.Errorf("expected maximum at center, got %v", got)
	}
}

func TestTwoPeakModelComposition(t *testing.T) {
	x := LinearRange(700, 760, 121)
	amp1, amp2 := 500.0, 300.0
	offset, calib := 18.0, 720.0
	w1, w2 := 2.0, 0.02
	bg := 10.0

	got := TwoPeakModel(x, amp1, amp2, offset, calib, w1, w2, bg)
	for i, xi := range x {
		want := bg + amp1*Lorentz(xi, offset+calib, w1) + amp2*Lorentz(xi, calib, w2)
		if math.Abs(got[i]-want) > 1e-9 {
			t.Fatalf("x=%g: got %g, want %g", xi, got[i], want)
		}
	}
}

func TestCenterOffsetFromTemperature(t *testing.T) {
	if got := CenterOffsetFromTemperature(0, 0, 18.5); got != 18.5 {
		t.Errorf("zero temperature should return the offset constant, got %g", got)
	}
	if got := CenterOffsetFromTemperature(10, 0.1, 18.5); math.Abs(got-19.5) > 1e-12 {
		t.Errorf("got %g, want 19.5", got)
	}
}
