package spectrafit

import "math/rand"

// SimulateSpectrum draws a synthetic spectrum from the full noise model at
// the given parameters: the recorded count at each x is an integer Poisson
// draw at the light-only prediction plus the CCD background offset plus a
// Gaussian read-noise draw. Useful for sanity-checking the likelihood
// engine against data with known ground truth.
func SimulateSpectrum(x []float64, p Params, rng *rand.Rand) *Spectrum {
	vec := p.Vector()
	var ccdBg, ccdStdev float64
	if p.Variant() == OnePeak {
		ccdBg, ccdStdev = vec[4], vec[5]
	} else {
		ccdBg, ccdStdev = vec[7], vec[8]
	}
	pred := lightModel(p.Variant(), x, vec)

	y := make([]float64, len(x))
	for i := range y {
		y[i] = float64(poissonSample(pred[i], rng)) + ccdBg + ccdStdev*rng.NormFloat64()
	}

	xCopy := append([]float64(nil), x...)
	return &Spectrum{X: xCopy, Y: y, Metadata: make(map[string]any)}
}

// LinearRange returns n evenly spaced values from lo to hi inclusive.
func LinearRange(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
