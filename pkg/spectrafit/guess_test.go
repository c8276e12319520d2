package spectrafit

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func flatSpectrum(n int, level float64) *Spectrum {
	x := LinearRange(710, 750, n)
	y := make([]float64, n)
	for i := range y {
		y[i] = level
	}
	return &Spectrum{X: x, Y: y, Metadata: map[string]any{}}
}

func TestGenerateSampleBallRejectsBadConfig(t *testing.T) {
	spec := flatSpectrum(100, 120)
	cases := []struct {
		name string
		cfg  GuessConfig
	}{
		{"zero peaks", GuessConfig{Peaks: 0, Walkers: 20}},
		{"three peaks", GuessConfig{Peaks: 3, Walkers: 20}},
		{"too few walkers two-peak", GuessConfig{Peaks: 2, Walkers: 17, CalibPosition: 720}},
		{"too few walkers one-peak", GuessConfig{Peaks: 1, Walkers: 11}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateSampleBall(spec, tc.cfg)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("got %v, want ConfigError", err)
			}
		})
	}
}

func TestHeuristicGuessTwoPeak(t *testing.T) {
	// A flat spectrum at level 200 makes every heuristic predictable: the
	// trailing-window median is 200, so is the midpoint intensity.
	spec := flatSpectrum(200, 200)
	ball, err := GenerateSampleBall(spec, GuessConfig{
		Peaks:         2,
		Walkers:       20,
		CalibPosition: 720,
		Seed:          1,
	})
	if err != nil {
		t.Fatal(err)
	}

	h := DefaultHeuristics()
	labels := TwoPeak.Labels()
	want := map[string]float64{
		"amp1":             0, // midpoint minus background is zero on flat data
		"amp2":             0,
		"center_offset":    h.ReferencePosition - 720,
		"calib_center":     720,
		"width1":           h.Width1Guess,
		"width2":           h.Width2Guess,
		"light_background": h.LightBackgroundFraction * 200,
		"ccd_background":   (1 - h.LightBackgroundFraction) * 200,
		"ccd_stdev":        h.CCDStdevGuess,
	}
	for d, label := range labels {
		if math.Abs(ball.Guess[d]-want[label]) > 1e-9 {
			t.Errorf("%s guess = %g, want %g", label, ball.Guess[d], want[label])
		}
	}
	if len(ball.Positions) != 20 {
		t.Fatalf("walkers = %d, want 20", len(ball.Positions))
	}
	for _, pos := range ball.Positions {
		if len(pos) != 9 {
			t.Fatalf("dimension = %d, want 9", len(pos))
		}
	}
}

func TestHeuristicGuessOnePeak(t *testing.T) {
	spec := flatSpectrum(200, 100)
	ball, err := GenerateSampleBall(spec, GuessConfig{Peaks: 1, Walkers: 12, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if ball.Variant != OnePeak {
		t.Fatalf("variant = %v, want OnePeak", ball.Variant)
	}
	h := DefaultHeuristics()
	if got := ball.Guess[1]; got != h.ReferencePosition {
		t.Errorf("center guess = %g, want %g", got, h.ReferencePosition)
	}
	if got := ball.Guess[5]; got != h.CCDStdevGuess {
		t.Errorf("ccd_stdev guess = %g, want %g", got, h.CCDStdevGuess)
	}
}

func TestGuessOverridesHonored(t *testing.T) {
	spec := flatSpectrum(100, 200)
	amp := 1234.0
	ampSpread := 1.0
	width := 5.0
	ball, err := GenerateSampleBall(spec, GuessConfig{
		Peaks:         2,
		Walkers:       20,
		CalibPosition: 720,
		Seed:          1,
		Overrides: GuessOverrides{
			Amp1Guess:   &amp,
			Amp1Spread:  &ampSpread,
			Width1Guess: &width,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ball.Guess[0] != amp {
		t.Errorf("amp1 guess = %g, want %g", ball.Guess[0], amp)
	}
	if ball.Spread[0] != ampSpread {
		t.Errorf("amp1 spread = %g, want %g", ball.Spread[0], ampSpread)
	}
	if ball.Guess[4] != width {
		t.Errorf("width1 guess = %g, want %g", ball.Guess[4], width)
	}
	// amp2 defaults follow the (overridden) amp1 heuristic
	if ball.Guess[1] != amp {
		t.Errorf("amp2 guess = %g, want %g", ball.Guess[1], amp)
	}
}

func TestSampleBallSpread(t *testing.T) {
	spec := flatSpectrum(100, 200)
	ball, err := GenerateSampleBall(spec, GuessConfig{
		Peaks:         2,
		Walkers:       100,
		CalibPosition: 720,
		Seed:          7,
	})
	if err != nil {
		t.Fatal(err)
	}
	// The calibration-center dimension has guess 720 and spread 0.5; the
	// ensemble should scatter around the guess on that scale.
	const d = 3
	mean := 0.0
	for _, pos := range ball.Positions {
		mean += pos[d]
	}
	mean /= float64(len(ball.Positions))
	if math.Abs(mean-720) > 0.3 {
		t.Errorf("ensemble mean calib_center = %g, want near 720", mean)
	}
	variance := 0.0
	for _, pos := range ball.Positions {
		variance += (pos[d] - mean) * (pos[d] - mean)
	}
	variance /= float64(len(ball.Positions))
	if sd := math.Sqrt(variance); sd < 0.2 || sd > 1.0 {
		t.Errorf("ensemble stdev calib_center = %g, want near 0.5", sd)
	}
}

func TestRefineSharpensGuess(t *testing.T) {
	// Simulate a clean-ish two-peak spectrum and check that refinement
	// pulls the central guess close to the generating parameters and
	// shrinks the spreads.
	truth := testParams()
	rng := rand.New(rand.NewSource(99))
	x := LinearRange(710, 750, 400)
	spec := SimulateSpectrum(x, truth, rng)

	cfg := GuessConfig{
		Peaks:         2,
		Walkers:       20,
		CalibPosition: 720,
		Seed:          3,
	}
	unrefined, err := GenerateSampleBall(spec, cfg)
	if err != nil {
		t.Fatal(err)
	}

	cfg.Refine = true
	refined, err := GenerateSampleBall(spec, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(refined.Guess[3]-truth.CalibCenter) > 0.1 {
		t.Errorf("refined calib_center = %g, want near %g", refined.Guess[3], truth.CalibCenter)
	}
	if math.Abs(refined.Guess[4]-truth.Width1) > 0.5 {
		t.Errorf("refined width1 = %g, want near %g", refined.Guess[4], truth.Width1)
	}
	h := DefaultHeuristics()
	for d := range refined.Spread {
		want := unrefined.Spread[d] / h.RefineShrinkFactor
		if math.Abs(refined.Spread[d]-want) > 1e-9*math.Abs(want)+1e-12 {
			t.Errorf("dim %d: refined spread = %g, want %g", d, refined.Spread[d], want)
		}
	}
}
