package spectrafit

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// buildChain fills a chain with deterministic values and the given
// per-walker accepted counts.
func buildChain(t *testing.T, walkers, steps int, accepted []int) *Chain {
	t.Helper()
	c := newChain(OnePeak, walkers)
	positions := make([][]float64, walkers)
	for w := range positions {
		positions[w] = make([]float64, OnePeak.Dim())
	}
	for step := 0; step < steps; step++ {
		for w := range positions {
			for d := range positions[w] {
				positions[w][d] = float64(step*1000 + w*10 + d)
			}
		}
		c.appendStep(positions)
	}
	copy(c.accepted, accepted)
	return c
}

func TestChainIndexing(t *testing.T) {
	c := buildChain(t, 12, 5, make([]int, 12))
	if c.Walkers() != 12 || c.Steps() != 5 || c.Dim() != 6 {
		t.Fatalf("shape = (%d, %d, %d), want (12, 5, 6)", c.Walkers(), c.Steps(), c.Dim())
	}
	if got := c.At(3, 4, 2); got != 4000+30+2 {
		t.Errorf("At(3, 4, 2) = %g, want 4032", got)
	}
}

func TestAcceptanceFractions(t *testing.T) {
	accepted := []int{10, 0, 5, 10, 10, 10, 10, 10, 10, 10, 10, 10}
	c := buildChain(t, 12, 10, accepted)
	fractions := c.AcceptanceFractions()
	if fractions[0] != 1.0 {
		t.Errorf("walker 0 fraction = %g, want 1", fractions[0])
	}
	if fractions[1] != 0 {
		t.Errorf("walker 1 fraction = %g, want 0", fractions[1])
	}
	if fractions[2] != 0.5 {
		t.Errorf("walker 2 fraction = %g, want 0.5", fractions[2])
	}
}

func TestFlattenValidatesBurnIn(t *testing.T) {
	c := buildChain(t, 12, 10, make([]int, 12))
	for _, burnIn := range []int{10, 11, -1} {
		_, err := c.Flatten(burnIn, true)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("burn-in %d: got %v, want ConfigError", burnIn, err)
		}
	}
}

func TestFlattenDropsStuckWalkers(t *testing.T) {
	accepted := make([]int, 12)
	for w := range accepted {
		accepted[w] = 5
	}
	accepted[4] = 0
	accepted[9] = 0
	c := buildChain(t, 12, 10, accepted)

	samples, err := c.Flatten(3, false)
	if err != nil {
		t.Fatal(err)
	}
	wantLen := (10 - 3) * 10 // 7 steps, 10 surviving walkers
	for _, label := range samples.Labels {
		if got := len(samples.Samples[label]); got != wantLen {
			t.Errorf("%s: %d samples, want %d", label, got, wantLen)
		}
	}

	kept, err := c.Flatten(3, true)
	if err != nil {
		t.Fatal(err)
	}
	wantLen = (10 - 3) * 12
	if got := len(kept.Samples["amp"]); got != wantLen {
		t.Errorf("with stuck walkers retained: %d samples, want %d", got, wantLen)
	}
}

func TestFlattenLabelsPerVariant(t *testing.T) {
	c := buildChain(t, 12, 4, make([]int, 12))
	c.accepted[0] = 1
	samples, err := c.Flatten(0, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"amp", "center", "width", "light_background", "ccd_background", "ccd_stdev"}
	if len(samples.Labels) != len(want) {
		t.Fatalf("labels = %v, want %v", samples.Labels, want)
	}
	for i, label := range want {
		if samples.Labels[i] != label {
			t.Errorf("label[%d] = %s, want %s", i, samples.Labels[i], label)
		}
	}
}

func TestCredibleIntervalMatchesQuantiles(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	labels := TwoPeak.Labels()
	samples := &PosteriorSamples{Labels: labels, Samples: make(map[string][]float64)}
	for i, label := range labels {
		seq := make([]float64, 5000)
		for j := range seq {
			seq[j] = float64(i)*100 + rng.NormFloat64()*float64(i+1)
		}
		samples.Samples[label] = seq
	}

	level := 0.68
	intervals, err := samples.CredibleInterval(level)
	if err != nil {
		t.Fatal(err)
	}
	for _, label := range labels {
		seq := samples.Samples[label]
		wantMid := quantile(seq, 0.5)
		wantUpper := quantile(seq, 0.5+level/2) - wantMid
		wantLower := wantMid - quantile(seq, 0.5-level/2)
		got := intervals[label]
		if got.Median != wantMid || got.Upper != wantUpper || got.Lower != wantLower {
			t.Errorf("%s: got %+v, want (%g, %g, %g)", label, got, wantMid, wantUpper, wantLower)
		}
	}
}

func TestCredibleIntervalsMultipleLevels(t *testing.T) {
	samples := &PosteriorSamples{
		Labels:  []string{"amp"},
		Samples: map[string][]float64{"amp": LinearRange(0, 999, 1000)},
	}
	sets, err := samples.CredibleIntervals([]float64{0.5, 0.68, 0.95})
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 3 {
		t.Fatalf("got %d interval sets, want 3", len(sets))
	}
	// Wider coverage means wider half-widths on the same samples.
	if sets[0]["amp"].Upper >= sets[2]["amp"].Upper {
		t.Errorf("0.5 upper %g not narrower than 0.95 upper %g",
			sets[0]["amp"].Upper, sets[2]["amp"].Upper)
	}
	for _, set := range sets {
		if math.Abs(set["amp"].Median-499.5) > 1e-9 {
			t.Errorf("median = %g, want 499.5", set["amp"].Median)
		}
	}
}

func TestCredibleIntervalsRejectBadLevels(t *testing.T) {
	samples := &PosteriorSamples{
		Labels:  []string{"amp"},
		Samples: map[string][]float64{"amp": {1, 2, 3}},
	}
	for _, levels := range [][]float64{nil, {}, {0}, {1}, {1.5}, {0.68, -0.1}} {
		_, err := samples.CredibleIntervals(levels)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("levels %v: got %v, want ConfigError", levels, err)
		}
	}
}

func TestQuantileInterpolation(t *testing.T) {
	v := []float64{4, 1, 3, 2} // unsorted on purpose
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{1, 4},
		{0.5, 2.5},
		{0.25, 1.75},
		{0.75, 3.25},
	}
	for _, tc := range cases {
		if got := quantile(v, tc.p); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("quantile(v, %g) = %g, want %g", tc.p, got, tc.want)
		}
	}
	// Input order is preserved.
	if v[0] != 4 || v[3] != 2 {
		t.Errorf("quantile mutated its input: %v", v)
	}
}
