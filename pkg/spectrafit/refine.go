package spectrafit

import (
	"fmt"
	"math"

	"github.com/maorshutman/lm"
)

// refineGuess sharpens a heuristic central guess with a local nonlinear
// least-squares fit of the noise-free light model against the raw data.
// The fit works on the light parameters only, with the two background terms
// lumped into one; the fitted background is split back by the configured
// fraction and the CCD noise width is left untouched.
//
// A fit that fails to converge surfaces as a FitError. No fallback to the
// unrefined guess: a non-converging pre-fit usually means the data or the
// guesses are bad enough that the sampler would struggle too.
func refineGuess(spec *Spectrum, variant ModelVariant, guess []float64, h *HeuristicConfig) ([]float64, error) {
	x, y := spec.X, spec.Y

	var init []float64
	if variant == OnePeak {
		// amp, center, width, lumped background
		init = []float64{guess[0], guess[1], guess[2], guess[3] + guess[4]}
	} else {
		// amp1, amp2, center offset, calib center, width1, width2, lumped background
		init = []float64{guess[0], guess[1], guess[2], guess[3], guess[4], guess[5], guess[6] + guess[7]}
	}

	residuals := func(dst, p []float64) {
		var pred []float64
		if variant == OnePeak {
			pred = OnePeakModel(x, p[0], p[1], p[2], p[3])
		} else {
			pred = TwoPeakModel(x, p[0], p[1], p[2], p[3], p[4], p[5], p[6])
		}
		for i := range dst {
			dst[i] = pred[i] - y[i]
		}
	}

	jac := lm.NumJac{Func: residuals}
	problem := lm.LMProblem{
		Dim:        len(init),
		Size:       len(x),
		Func:       residuals,
		Jac:        jac.Jac,
		InitParams: init,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	results, err := lm.LM(problem, &lm.Settings{Iterations: 200, ObjectiveTol: 1e-16})
	if err != nil {
		return nil, &FitError{Stage: "levenberg-marquardt", Err: err}
	}
	for _, v := range results.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &FitError{
				Stage: "levenberg-marquardt",
				Err:   fmt.Errorf("fit produced non-finite parameter %g", v),
			}
		}
	}

	refined := make([]float64, len(guess))
	copy(refined, guess)
	p := results.X
	if variant == OnePeak {
		refined[0] = p[0]
		refined[1] = p[1]
		refined[2] = math.Abs(p[2]) // width sign is not identifiable
		refined[3] = h.LightBackgroundFraction * p[3]
		refined[4] = (1 - h.LightBackgroundFraction) * p[3]
	} else {
		refined[0] = p[0]
		refined[1] = p[1]
		refined[2] = p[2]
		refined[3] = p[3]
		refined[4] = math.Abs(p[4])
		refined[5] = math.Abs(p[5])
		refined[6] = h.LightBackgroundFraction * p[6]
		refined[7] = (1 - h.LightBackgroundFraction) * p[6]
	}
	return refined, nil
}
