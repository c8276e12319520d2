package spectrafit

import (
	"fmt"
	"math"
)

// LogLikelihood computes log p(y | model, noise) under the compound
// Poisson/Gaussian noise model: the physical photon count at each point is
// Poisson-distributed with mean equal to the light-only model prediction,
// and the recorded value is that count plus a CCD background offset and
// zero-mean Gaussian read noise of standard deviation ccd_stdev. The two
// distributions are convolved by enumerating plausible photon counts.
//
// All context is passed as arguments; the function is pure and safe to call
// from any number of goroutines concurrently.
//
// Returns -Inf for the guarded degenerate region (non-positive predicted
// intensity anywhere, or a negative background term): such proposals are
// physically impossible and the sampler rejects them naturally.
func LogLikelihood(x, y []float64, p Params, opts LikelihoodOptions) (float64, error) {
	if err := opts.validate(); err != nil {
		return 0, err
	}
	if len(x) == 0 || len(x) != len(y) {
		return 0, &ConfigError{
			Field:   "data",
			Message: fmt.Sprintf("x and y must be non-empty and of equal length, got %d and %d", len(x), len(y)),
		}
	}
	return logLikelihoodVector(p.Variant(), x, y, p.Vector(), opts, nil), nil
}

// LikelihoodDiagnostics carries the intermediate quantities of one
// likelihood evaluation for debugging the convolution bookkeeping.
type LikelihoodDiagnostics struct {
	Total      float64   `json:"total"`
	PerPoint   []float64 `json:"per_point"`  // log-likelihood contribution per observation
	WindowLow  float64   `json:"window_low"` // safe path: first enumerated count
	WindowHigh float64   `json:"window_high"`
	HalfWidth  int       `json:"half_width"` // fast path: enumeration half-width
}

// LogLikelihoodDiagnostics evaluates the likelihood and additionally returns
// the per-observation contributions and the enumeration geometry.
func LogLikelihoodDiagnostics(x, y []float64, p Params, opts LikelihoodOptions) (*LikelihoodDiagnostics, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 || len(x) != len(y) {
		return nil, &ConfigError{
			Field:   "data",
			Message: fmt.Sprintf("x and y must be non-empty and of equal length, got %d and %d", len(x), len(y)),
		}
	}
	diag := &LikelihoodDiagnostics{PerPoint: make([]float64, len(y))}
	diag.Total = logLikelihoodVector(p.Variant(), x, y, p.Vector(), opts, diag)
	return diag, nil
}

// logLikelihoodVector is the sampler-facing evaluation path. Options must
// already be validated; degenerate parameter regions yield -Inf, never an
// error, so the hot loop stays allocation- and branch-light.
func logLikelihoodVector(v ModelVariant, x, y, vec []float64, opts LikelihoodOptions, diag *LikelihoodDiagnostics) float64 {
	var lightBg, ccdBg, ccdStdev float64
	if v == OnePeak {
		lightBg, ccdBg, ccdStdev = vec[3], vec[4], vec[5]
	} else {
		lightBg, ccdBg, ccdStdev = vec[6], vec[7], vec[8]
	}

	// Degenerate guards run before any convolution work. Negative photon
	// rates and negative backgrounds have zero prior support; a
	// non-positive noise width has no density at all.
	if lightBg < 0 || ccdBg < 0 || ccdStdev <= 0 {
		return math.Inf(-1)
	}
	pred := lightModel(v, x, vec)
	for _, lam := range pred {
		if lam <= 0 || math.IsNaN(lam) {
			return math.Inf(-1)
		}
	}

	if opts.GaussianApprox {
		return gaussianApproxLogLikelihood(pred, y, ccdBg, ccdStdev, diag)
	}
	if opts.Strategy == StrategySafe {
		return safeLogLikelihood(pred, y, ccdBg, ccdStdev, opts.ConvRange, diag)
	}
	return fastLogLikelihood(pred, y, ccdBg, ccdStdev, opts.ConvRange, diag)
}

// safeLogLikelihood enumerates every plausible integer photon count between
// the combined extremes of the background-subtracted data and the model
// prediction, padded by span standard deviations on each side. Exact but
// expensive: the enumeration scales with the absolute count level.
func safeLogLikelihood(pred, y []float64, ccdBg, ccdStdev, span float64, diag *LikelihoodDiagnostics) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range y {
		c := y[i] - ccdBg
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
		if pred[i] < lo {
			lo = pred[i]
		}
		if pred[i] > hi {
			hi = pred[i]
		}
	}
	if hi < lo {
		hi = lo
	}
	nLow := math.Max(0, math.Floor(lo-span*math.Sqrt(math.Max(lo, 0))))
	nHigh := math.Ceil(hi + span*math.Sqrt(math.Max(hi, 1)))
	if nHigh < nLow {
		nHigh = nLow
	}
	if diag != nil {
		diag.WindowLow, diag.WindowHigh = nLow, nHigh
	}

	terms := make([]float64, 0, int(nHigh-nLow)+1)
	total := 0.0
	for i := range y {
		terms = terms[:0]
		for n := nLow; n <= nHigh; n++ {
			terms = append(terms, poissonLogProb(pred[i], n)+gaussianLogPDF(y[i]-n-ccdBg, ccdStdev))
		}
		pointLL := logSumExp(terms)
		if diag != nil {
			diag.PerPoint[i] = pointLL
		}
		total += pointLL
	}
	return total
}

// fastLogLikelihood performs a change of variable so the enumeration axis is
// a fixed window around each observation's most likely photon count instead
// of spanning the absolute count range. The window half-width is set once
// from the largest relevant scale, not recomputed per point. Entries that
// would correspond to a negative photon count are masked out of the sum:
// zero probability, never a NaN. A point whose entire window is masked has
// zero likelihood, which drives the total to -Inf.
func fastLogLikelihood(pred, y []float64, ccdBg, ccdStdev, convRange float64, diag *LikelihoodDiagnostics) float64 {
	maxPred := 0.0
	for _, lam := range pred {
		if lam > maxPred {
			maxPred = lam
		}
	}
	scale := math.Sqrt(maxPred + ccdStdev*ccdStdev)
	halfWidth := int(math.Ceil(convRange * scale))
	if halfWidth < 1 {
		halfWidth = 1
	}
	if diag != nil {
		diag.HalfWidth = halfWidth
	}

	terms := make([]float64, 0, 2*halfWidth+1)
	total := 0.0
	for i := range y {
		center := math.Round(y[i] - ccdBg)
		terms = terms[:0]
		for d := -halfWidth; d <= halfWidth; d++ {
			n := center + float64(d)
			if n < 0 {
				continue // negative photon count: masked, zero probability
			}
			terms = append(terms, poissonLogProb(pred[i], n)+gaussianLogPDF(y[i]-n-ccdBg, ccdStdev))
		}
		pointLL := logSumExp(terms)
		if diag != nil {
			diag.PerPoint[i] = pointLL
		}
		total += pointLL
	}
	return total
}

// gaussianApproxLogLikelihood approximates the Poisson term by a Gaussian of
// matching mean and variance, so the convolution of the two noise sources
// collapses to a single Gaussian with variance lambda + ccd_stdev^2.
func gaussianApproxLogLikelihood(pred, y []float64, ccdBg, ccdStdev float64, diag *LikelihoodDiagnostics) float64 {
	total := 0.0
	for i := range y {
		stdev := math.Sqrt(pred[i] + ccdStdev*ccdStdev)
		pointLL := gaussianLogPDF(y[i]-pred[i]-ccdBg, stdev)
		if diag != nil {
			diag.PerPoint[i] = pointLL
		}
		total += pointLL
	}
	return total
}
