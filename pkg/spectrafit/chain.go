package spectrafit

import (
	"fmt"
	"log"
)

// Chain is the raw sampler output: one parameter vector per (walker, step).
// It is append-only while a run is in progress and read-only afterward.
type Chain struct {
	Variant ModelVariant `json:"variant"`

	walkers  int
	dim      int
	steps    int
	data     []float64 // step-major: [(step*walkers + walker)*dim + param]
	accepted []int     // accepted proposals per walker
}

func newChain(variant ModelVariant, walkers int) *Chain {
	return &Chain{
		Variant:  variant,
		walkers:  walkers,
		dim:      variant.Dim(),
		accepted: make([]int, walkers),
	}
}

// appendStep records the current ensemble positions as one chain step.
func (c *Chain) appendStep(positions [][]float64) {
	for _, pos := range positions {
		c.data = append(c.data, pos...)
	}
	c.steps++
}

// Walkers returns the ensemble size.
func (c *Chain) Walkers() int { return c.walkers }

// Steps returns the number of recorded steps.
func (c *Chain) Steps() int { return c.steps }

// Dim returns the parameter dimensionality.
func (c *Chain) Dim() int { return c.dim }

// At returns the value of one parameter at one (walker, step) coordinate.
func (c *Chain) At(walker, step, param int) float64 {
	return c.data[(step*c.walkers+walker)*c.dim+param]
}

// AcceptanceFractions returns the fraction of proposed moves each walker
// accepted over the run. Near-zero values flag stuck walkers.
func (c *Chain) AcceptanceFractions() []float64 {
	fractions := make([]float64, c.walkers)
	if c.steps == 0 {
		return fractions
	}
	for w, n := range c.accepted {
		fractions[w] = float64(n) / float64(c.steps)
	}
	return fractions
}

// MeanAcceptanceFraction returns the ensemble-average acceptance fraction.
func (c *Chain) MeanAcceptanceFraction() float64 {
	sum := 0.0
	for _, f := range c.AcceptanceFractions() {
		sum += f
	}
	return sum / float64(c.walkers)
}

// PosteriorSamples holds one flat sample sequence per named parameter,
// produced from a chain after burn-in removal.
type PosteriorSamples struct {
	Labels  []string             `json:"labels"`
	Samples map[string][]float64 `json:"samples"`
}

// Flatten discards the first burnIn steps and reshapes the chain into one
// sample sequence per parameter. Walkers with zero acceptance fraction are
// dropped by default: a collapsed walker repeats its starting point for the
// whole run and would bias the posterior. Passing keepStuck retains them
// anyway and surfaces a warning.
func (c *Chain) Flatten(burnIn int, keepStuck bool) (*PosteriorSamples, error) {
	if burnIn < 0 || burnIn >= c.steps {
		return nil, &ConfigError{
			Field:   "burn_in",
			Message: fmt.Sprintf("burn-in must be in [0, %d), got %d", c.steps, burnIn),
		}
	}

	fractions := c.AcceptanceFractions()
	keep := make([]int, 0, c.walkers)
	stuck := 0
	for w, f := range fractions {
		if f == 0 {
			stuck++
			if !keepStuck {
				continue
			}
		}
		keep = append(keep, w)
	}
	if stuck > 0 && keepStuck {
		log.Printf("warning: retaining %d zero-acceptance walkers in posterior samples", stuck)
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("all %d walkers have zero acceptance fraction; nothing to flatten", c.walkers)
	}

	labels := c.Variant.Labels()
	samples := make(map[string][]float64, c.dim)
	n := (c.steps - burnIn) * len(keep)
	for d, label := range labels {
		seq := make([]float64, 0, n)
		for step := burnIn; step < c.steps; step++ {
			for _, w := range keep {
				seq = append(seq, c.At(w, step, d))
			}
		}
		samples[label] = seq
	}

	return &PosteriorSamples{Labels: labels, Samples: samples}, nil
}

// CredibleInterval is a posterior summary for one parameter at one coverage
// level: the median plus the distances to the upper and lower quantiles.
type CredibleInterval struct {
	Median float64 `json:"median"`
	Upper  float64 `json:"upper"` // distance from median to the upper quantile
	Lower  float64 `json:"lower"` // distance from median to the lower quantile
}

// CredibleInterval computes per-parameter credible intervals at a single
// coverage level in (0, 1), e.g. 0.68.
func (p *PosteriorSamples) CredibleInterval(level float64) (map[string]CredibleInterval, error) {
	intervals, err := p.CredibleIntervals([]float64{level})
	if err != nil {
		return nil, err
	}
	return intervals[0], nil
}

// CredibleIntervals computes per-parameter credible intervals for each of
// the requested coverage levels, returning one interval set per level.
func (p *PosteriorSamples) CredibleIntervals(levels []float64) ([]map[string]CredibleInterval, error) {
	if len(levels) == 0 {
		return nil, &ConfigError{Field: "levels", Message: "at least one coverage level is required"}
	}
	for _, level := range levels {
		if level <= 0 || level >= 1 {
			return nil, &ConfigError{
				Field:   "levels",
				Message: fmt.Sprintf("coverage level must be in (0, 1), got %g", level),
			}
		}
	}

	out := make([]map[string]CredibleInterval, len(levels))
	for i, level := range levels {
		set := make(map[string]CredibleInterval, len(p.Labels))
		for _, label := range p.Labels {
			seq := p.Samples[label]
			mid := quantile(seq, 0.5)
			hi := quantile(seq, 0.5+level/2)
			lo := quantile(seq, 0.5-level/2)
			set[label] = CredibleInterval{Median: mid, Upper: hi - mid, Lower: mid - lo}
		}
		out[i] = set
	}
	return out, nil
}
