package spectrafit

import (
	"math"
	"math/rand"
	"sort"
)

// poissonLogProb calculates log P(X = k) where X ~ Poisson(lambda).
// k is carried as a float because the convolution enumerates photon counts
// relative to continuous CCD readings; it must hold an integer value.
func poissonLogProb(lambda, k float64) float64 {
	if k < 0 {
		return math.Inf(-1)
	}
	if lambda <= 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	lg, _ := math.Lgamma(k + 1)
	return k*math.Log(lambda) - lambda - lg
}

// gaussianLogPDF calculates the log density of a zero-mean Gaussian with
// standard deviation stdev at the point dev.
func gaussianLogPDF(dev, stdev float64) float64 {
	return -0.5*math.Log(2*math.Pi*stdev*stdev) - dev*dev/(2*stdev*stdev)
}

// logSumExp computes log(sum(exp(v))) in a numerically stable way.
// Entries of -Inf contribute zero probability. Returns -Inf when every
// entry is -Inf.
func logSumExp(v []float64) float64 {
	maxv := math.Inf(-1)
	for _, x := range v {
		if x > maxv {
			maxv = x
		}
	}
	if math.IsInf(maxv, -1) {
		return math.Inf(-1)
	}
	sum := 0.0
	for _, x := range v {
		if !math.IsInf(x, -1) {
			sum += math.Exp(x - maxv)
		}
	}
	return maxv + math.Log(sum)
}

// poissonSample generates a random sample from Poisson(lambda).
func poissonSample(lambda float64, rng *rand.Rand) int {
	if lambda <= 0 {
		return 0
	}

	// Inverse transform sampling for small lambda
	if lambda < 12 {
		threshold := math.Exp(-lambda)
		k := 0
		p := 1.0
		for p > threshold {
			k++
			p *= rng.Float64()
		}
		return k - 1
	}

	// Normal approximation for large lambda
	return int(math.Max(0, rng.NormFloat64()*math.Sqrt(lambda)+lambda+0.5))
}

// median returns the median of v without mutating it.
func median(v []float64) float64 {
	return quantile(v, 0.5)
}

// quantile returns the p-quantile of v (0 <= p <= 1) using linear
// interpolation between order statistics. v is not mutated.
func quantile(v []float64, p float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
