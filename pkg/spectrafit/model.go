package spectrafit

import "math"

// Lorentz evaluates a normalized Lorentzian with peak position center and
// FWHM width. The absolute value forces the result non-negative: the width
// enters only through its square mathematically, but a negative width
// proposed by the sampler must not leak a negative intensity through
// numeric error.
func Lorentz(x, center, width float64) float64 {
	hw := width / 2
	return math.Abs((1 / math.Pi) * hw / ((x-center)*(x-center) + hw*hw))
}

// OnePeakModel evaluates a single Lorentzian line over a flat background at
// each x value.
func OnePeakModel(x []float64, amp, center, width, background float64) []float64 {
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = background + amp*Lorentz(xi, center, width)
	}
	return out
}

// TwoPeakModel evaluates the broad line plus narrow calibration line over a
// flat background. The broad peak sits at centerOffset + calibCenter.
func TwoPeakModel(x []float64, amp1, amp2, centerOffset, calibCenter, width1, width2, background float64) []float64 {
	center1 := centerOffset + calibCenter
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = background +
			amp1*Lorentz(xi, center1, width1) +
			amp2*Lorentz(xi, calibCenter, width2)
	}
	return out
}

// lightModel evaluates the noise-free light prediction for any variant from
// a canonical parameter vector. This is the Poisson mean at each x.
func lightModel(v ModelVariant, x []float64, vec []float64) []float64 {
	if v == OnePeak {
		return OnePeakModel(x, vec[0], vec[1], vec[2], vec[3])
	}
	return TwoPeakModel(x, vec[0], vec[1], vec[2], vec[3], vec[4], vec[5], vec[6])
}
