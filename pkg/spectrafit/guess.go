package spectrafit

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// HeuristicConfig holds the named constants behind the starting-guess
// heuristics. Whether the background-split fractions are domain-calibrated
// or placeholders is an open question upstream; they are kept overridable
// rather than re-derived.
type HeuristicConfig struct {
	Width1Guess  float64 `json:"width1_guess"`  // broad peak FWHM guess (default: 2)
	Width1Spread float64 `json:"width1_spread"` // (default: 2)
	Width2Guess  float64 `json:"width2_guess"`  // calibration peak FWHM guess (default: 0.02)
	Width2Spread float64 `json:"width2_spread"` // (default: 0.05)

	// ReferencePosition is the nominal broad-peak position; the two-peak
	// center-offset guess is ReferencePosition minus the supplied
	// calibration-peak position.
	ReferencePosition  float64 `json:"reference_position"`   // (default: 739)
	CenterOffsetSpread float64 `json:"center_offset_spread"` // (default: 3)
	CalibCenterSpread  float64 `json:"calib_center_spread"`  // (default: 0.5)

	AmpSpreadFraction float64 `json:"amp_spread_fraction"` // spread as fraction of amp guess (default: 0.8)

	// Background split: the trailing-window median is assumed background
	// dominated; LightBackgroundFraction of it is attributed to the
	// shot-noise term and the remainder to the CCD term.
	TrailingWindowFraction      float64 `json:"trailing_window_fraction"`       // (default: 0.05)
	LightBackgroundFraction     float64 `json:"light_background_fraction"`      // (default: 0.05)
	CCDBackgroundSpreadFraction float64 `json:"ccd_background_spread_fraction"` // (default: 0.5)

	CCDStdevGuess  float64 `json:"ccd_stdev_guess"`  // data independent (default: 10)
	CCDStdevSpread float64 `json:"ccd_stdev_spread"` // (default: 10)

	// RefineShrinkFactor divides every spread after a successful
	// maximum-likelihood refinement.
	RefineShrinkFactor float64 `json:"refine_shrink_factor"` // (default: 100)
}

// DefaultHeuristics returns the physically motivated guess defaults.
func DefaultHeuristics() *HeuristicConfig {
	return &HeuristicConfig{
		Width1Guess:                 2,
		Width1Spread:                2,
		Width2Guess:                 0.02,
		Width2Spread:                0.05,
		ReferencePosition:           739,
		CenterOffsetSpread:          3,
		CalibCenterSpread:           0.5,
		AmpSpreadFraction:           0.8,
		TrailingWindowFraction:      0.05,
		LightBackgroundFraction:     0.05,
		CCDBackgroundSpreadFraction: 0.5,
		CCDStdevGuess:               10,
		CCDStdevSpread:              10,
		RefineShrinkFactor:          100,
	}
}

// GuessOverrides lets the caller pin any individual guess or spread instead
// of the heuristic value. Nil fields use the heuristic. In one-peak mode the
// Amp1/Width1 fields apply to the single peak and CenterOffset to its
// absolute position; the Amp2/Width2/CalibCenter fields are ignored.
type GuessOverrides struct {
	Amp1Guess  *float64 `json:"amp1_guess,omitempty"`
	Amp1Spread *float64 `json:"amp1_spread,omitempty"`
	Amp2Guess  *float64 `json:"amp2_guess,omitempty"`
	Amp2Spread *float64 `json:"amp2_spread,omitempty"`

	CenterOffsetGuess  *float64 `json:"center_offset_guess,omitempty"`
	CenterOffsetSpread *float64 `json:"center_offset_spread,omitempty"`
	CalibCenterSpread  *float64 `json:"calib_center_spread,omitempty"`

	Width1Guess  *float64 `json:"width1_guess,omitempty"`
	Width1Spread *float64 `json:"width1_spread,omitempty"`
	Width2Guess  *float64 `json:"width2_guess,omitempty"`
	Width2Spread *float64 `json:"width2_spread,omitempty"`

	LightBackgroundGuess  *float64 `json:"light_background_guess,omitempty"`
	LightBackgroundSpread *float64 `json:"light_background_spread,omitempty"`
	CCDBackgroundGuess    *float64 `json:"ccd_background_guess,omitempty"`
	CCDBackgroundSpread   *float64 `json:"ccd_background_spread,omitempty"`
	CCDStdevGuess         *float64 `json:"ccd_stdev_guess,omitempty"`
	CCDStdevSpread        *float64 `json:"ccd_stdev_spread,omitempty"`
}

// GuessConfig configures starting-position generation.
type GuessConfig struct {
	Peaks   int `json:"peaks"`   // 1 or 2
	Walkers int `json:"walkers"` // ensemble size (default: 20)

	// CalibPosition is the approximate calibration-line position. The
	// calibration line is too sharp to locate heuristically, so the
	// two-peak variant requires it from the caller.
	CalibPosition float64 `json:"calib_position"`

	// Refine sharpens the central guess with a local least-squares fit of
	// the noise-free model before drawing the ball, then shrinks every
	// spread by RefineShrinkFactor.
	Refine bool `json:"refine"`

	Overrides  GuessOverrides   `json:"overrides"`
	Heuristics *HeuristicConfig `json:"heuristics,omitempty"` // nil uses DefaultHeuristics
	Seed       int64            `json:"seed"`                 // 0 seeds from the clock
}

// SampleBall is the ensemble of starting parameter vectors fed to the
// sampler: each walker is drawn independently per dimension around the
// central guess with the configured spread.
type SampleBall struct {
	Variant   ModelVariant `json:"variant"`
	Positions [][]float64  `json:"positions"` // [walker][parameter]
	Guess     []float64    `json:"guess"`     // central guess, canonical order
	Spread    []float64    `json:"spread"`    // per-dimension spread
}

// Walkers returns the ensemble size.
func (b *SampleBall) Walkers() int { return len(b.Positions) }

// GenerateSampleBall builds a starting ensemble from heuristics over the
// data, honoring any caller-supplied overrides and optionally refining the
// central guess with a least-squares pre-fit.
func GenerateSampleBall(spec *Spectrum, cfg GuessConfig) (*SampleBall, error) {
	variant, err := VariantForPeaks(cfg.Peaks)
	if err != nil {
		return nil, err
	}
	walkers := cfg.Walkers
	if walkers == 0 {
		walkers = DefaultSamplerOptions().Walkers
	}
	dim := variant.Dim()
	if walkers < 2*dim {
		return nil, &ConfigError{
			Field:   "walkers",
			Message: fmt.Sprintf("ensemble sampling needs at least %d walkers for %d dimensions, got %d", 2*dim, dim, walkers),
		}
	}
	h := cfg.Heuristics
	if h == nil {
		h = DefaultHeuristics()
	}

	guess, spread := heuristicGuess(spec, variant, cfg, h)

	if cfg.Refine {
		refined, err := refineGuess(spec, variant, guess, h)
		if err != nil {
			return nil, err
		}
		guess = refined
		for d := range spread {
			spread[d] /= h.RefineShrinkFactor
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	positions := make([][]float64, walkers)
	for w := range positions {
		pos := make([]float64, dim)
		for d := range pos {
			pos[d] = guess[d] + spread[d]*rng.NormFloat64()
		}
		positions[w] = pos
	}

	return &SampleBall{
		Variant:   variant,
		Positions: positions,
		Guess:     guess,
		Spread:    spread,
	}, nil
}

// heuristicGuess derives the central guess and per-dimension spread in
// canonical parameter order.
func heuristicGuess(spec *Spectrum, variant ModelVariant, cfg GuessConfig, h *HeuristicConfig) (guess, spread []float64) {
	y := spec.Y
	o := cfg.Overrides

	// The trailing slice of the spectrum (by index) is assumed background
	// dominated; its median estimates the total background level.
	window := int(h.TrailingWindowFraction * float64(len(y)))
	if window < 1 {
		window = 1
	}
	totalBg := median(y[len(y)-window:])

	lightBg := orDefault(o.LightBackgroundGuess, h.LightBackgroundFraction*totalBg)
	lightBgSpread := orDefault(o.LightBackgroundSpread, lightBg)
	ccdBg := orDefault(o.CCDBackgroundGuess, (1-h.LightBackgroundFraction)*totalBg)
	ccdBgSpread := orDefault(o.CCDBackgroundSpread, h.CCDBackgroundSpreadFraction*ccdBg)
	ccdStdev := orDefault(o.CCDStdevGuess, h.CCDStdevGuess)
	ccdStdevSpread := orDefault(o.CCDStdevSpread, h.CCDStdevSpread)

	width1 := orDefault(o.Width1Guess, h.Width1Guess)
	width1Spread := orDefault(o.Width1Spread, h.Width1Spread)

	// A Lorentzian's peak height is roughly amplitude / width, so the
	// amplitude guess is the background-subtracted height near the
	// spectrum midpoint scaled back up by the width guess.
	midHeight := y[len(y)/2] - totalBg
	amp1 := orDefault(o.Amp1Guess, midHeight*width1)
	amp1Spread := orDefault(o.Amp1Spread, h.AmpSpreadFraction*math.Abs(amp1))

	if variant == OnePeak {
		center := orDefault(o.CenterOffsetGuess, h.ReferencePosition)
		centerSpread := orDefault(o.CenterOffsetSpread, h.CenterOffsetSpread)
		guess = []float64{amp1, center, width1, lightBg, ccdBg, ccdStdev}
		spread = []float64{amp1Spread, centerSpread, width1Spread, lightBgSpread, ccdBgSpread, ccdStdevSpread}
		return guess, spread
	}

	amp2 := orDefault(o.Amp2Guess, amp1)
	amp2Spread := orDefault(o.Amp2Spread, amp1Spread)
	width2 := orDefault(o.Width2Guess, h.Width2Guess)
	width2Spread := orDefault(o.Width2Spread, h.Width2Spread)
	centerOffset := orDefault(o.CenterOffsetGuess, h.ReferencePosition-cfg.CalibPosition)
	centerOffsetSpread := orDefault(o.CenterOffsetSpread, h.CenterOffsetSpread)
	calibSpread := orDefault(o.CalibCenterSpread, h.CalibCenterSpread)

	guess = []float64{
		amp1, amp2, centerOffset, cfg.CalibPosition, width1, width2,
		lightBg, ccdBg, ccdStdev,
	}
	spread = []float64{
		amp1Spread, amp2Spread, centerOffsetSpread, calibSpread, width1Spread, width2Spread,
		lightBgSpread, ccdBgSpread, ccdStdevSpread,
	}
	return guess, spread
}

func orDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}
