package spectrafit

import "fmt"

// Spectrum represents a single photon-counting spectrum: paired wavelength
// and count sequences plus an open-ended metadata mapping. The core only
// reads X and Y; construction and persistence live in io.go.
type Spectrum struct {
	X        []float64      `json:"wavelength"`
	Y        []float64      `json:"counts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewSpectrum builds a Spectrum, enforcing the paired-sequence invariant.
func NewSpectrum(x, y []float64, metadata map[string]any) (*Spectrum, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, &ConfigError{Field: "spectrum", Message: "x and y must be non-empty"}
	}
	if len(x) != len(y) {
		return nil, &ConfigError{
			Field:   "spectrum",
			Message: fmt.Sprintf("x and y must have equal length, got %d and %d", len(x), len(y)),
		}
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Spectrum{X: x, Y: y, Metadata: metadata}, nil
}

// ModelVariant selects the closed set of supported peak models.
type ModelVariant int

const (
	// OnePeak is a single Lorentzian line over a flat background.
	OnePeak ModelVariant = 1
	// TwoPeak is a broad line plus a narrow calibration line; the broad
	// peak position is encoded relative to the calibration peak.
	TwoPeak ModelVariant = 2
)

// VariantForPeaks maps a peak-count selector to a ModelVariant.
// Selectors outside {1, 2} are configuration errors.
func VariantForPeaks(peaks int) (ModelVariant, error) {
	switch peaks {
	case 1:
		return OnePeak, nil
	case 2:
		return TwoPeak, nil
	default:
		return 0, &ConfigError{
			Field:   "peaks",
			Message: fmt.Sprintf("peak count must be 1 or 2, got %d", peaks),
		}
	}
}

// Dim returns the parameter dimensionality of the variant.
func (v ModelVariant) Dim() int {
	if v == OnePeak {
		return 6
	}
	return 9
}

// Labels returns the ordered parameter names of the variant. The order is
// the canonical vector order used by the sampler and the chain.
func (v ModelVariant) Labels() []string {
	if v == OnePeak {
		return []string{
			"amp", "center", "width",
			"light_background", "ccd_background", "ccd_stdev",
		}
	}
	return []string{
		"amp1", "amp2", "center_offset", "calib_center", "width1", "width2",
		"light_background", "ccd_background", "ccd_stdev",
	}
}

// OnePeakParams holds the six parameters of the single-peak model.
type OnePeakParams struct {
	Amp             float64 `json:"amp"`
	Center          float64 `json:"center"`
	Width           float64 `json:"width"`
	LightBackground float64 `json:"light_background"`
	CCDBackground   float64 `json:"ccd_background"`
	CCDStdev        float64 `json:"ccd_stdev"`
}

// Variant reports the model variant of the parameter set.
func (p OnePeakParams) Variant() ModelVariant { return OnePeak }

// Vector returns the parameters in canonical order.
func (p OnePeakParams) Vector() []float64 {
	return []float64{
		p.Amp, p.Center, p.Width,
		p.LightBackground, p.CCDBackground, p.CCDStdev,
	}
}

// TwoPeakParams holds the nine parameters of the two-peak model. The broad
// peak position is CenterOffset + CalibCenter: the calibration line position
// is itself only approximately known, so it is inferred alongside the offset.
type TwoPeakParams struct {
	Amp1            float64 `json:"amp1"`
	Amp2            float64 `json:"amp2"`
	CenterOffset    float64 `json:"center_offset"`
	CalibCenter     float64 `json:"calib_center"`
	Width1          float64 `json:"width1"`
	Width2          float64 `json:"width2"`
	LightBackground float64 `json:"light_background"`
	CCDBackground   float64 `json:"ccd_background"`
	CCDStdev        float64 `json:"ccd_stdev"`
}

// Variant reports the model variant of the parameter set.
func (p TwoPeakParams) Variant() ModelVariant { return TwoPeak }

// Vector returns the parameters in canonical order.
func (p TwoPeakParams) Vector() []float64 {
	return []float64{
		p.Amp1, p.Amp2, p.CenterOffset, p.CalibCenter, p.Width1, p.Width2,
		p.LightBackground, p.CCDBackground, p.CCDStdev,
	}
}

// CenterOffsetFromTemperature converts a sample temperature to a broad-peak
// center offset under the linear calibration offset = c0 + t*m.
func CenterOffsetFromTemperature(t, m, c0 float64) float64 {
	return c0 + t*m
}

// Params is the closed set of model parameter vectors.
type Params interface {
	Variant() ModelVariant
	Vector() []float64
}

// paramsFromVector rebuilds a typed parameter set from a canonical vector.
func paramsFromVector(v ModelVariant, vec []float64) Params {
	if v == OnePeak {
		return OnePeakParams{
			Amp:             vec[0],
			Center:          vec[1],
			Width:           vec[2],
			LightBackground: vec[3],
			CCDBackground:   vec[4],
			CCDStdev:        vec[5],
		}
	}
	return TwoPeakParams{
		Amp1:            vec[0],
		Amp2:            vec[1],
		CenterOffset:    vec[2],
		CalibCenter:     vec[3],
		Width1:          vec[4],
		Width2:          vec[5],
		LightBackground: vec[6],
		CCDBackground:   vec[7],
		CCDStdev:        vec[8],
	}
}

// Strategy selects the convolution evaluation path of the likelihood engine.
type Strategy int

const (
	// StrategyFast enumerates a fixed window around each observation's most
	// likely photon count. Default; roughly an order of magnitude cheaper
	// than StrategySafe for typical count levels.
	StrategyFast Strategy = iota
	// StrategySafe enumerates every plausible photon count between the
	// combined data/model extremes. Exact up to the enumeration span.
	StrategySafe
)

func (s Strategy) String() string {
	if s == StrategySafe {
		return "safe"
	}
	return "fast"
}

// LikelihoodOptions configures the likelihood engine.
type LikelihoodOptions struct {
	Strategy Strategy `json:"strategy"`
	// GaussianApprox replaces the discrete Poisson term with a Gaussian of
	// matching mean and variance, collapsing the convolution to closed form.
	// Appropriate when expected counts are large (roughly > 10).
	GaussianApprox bool `json:"gaussian_approx"`
	// ConvRange is the enumeration half-width in standard deviations of the
	// largest relevant count scale. Must be positive.
	ConvRange float64 `json:"conv_range"`
}

// DefaultLikelihoodOptions returns the fast-path defaults.
func DefaultLikelihoodOptions() LikelihoodOptions {
	return LikelihoodOptions{
		Strategy:  StrategyFast,
		ConvRange: 2.5, // Poisson standard deviations around the window center
	}
}

// SafeLikelihoodOptions returns the exact-path defaults.
func SafeLikelihoodOptions() LikelihoodOptions {
	return LikelihoodOptions{
		Strategy:  StrategySafe,
		ConvRange: 3.0, // standard deviations beyond the data/model extremes
	}
}

func (o LikelihoodOptions) validate() error {
	if o.ConvRange <= 0 {
		return &ConfigError{
			Field:   "conv_range",
			Message: fmt.Sprintf("enumeration range must be positive, got %g", o.ConvRange),
		}
	}
	return nil
}

// SamplerOptions configures a sampling run.
type SamplerOptions struct {
	Walkers int   `json:"walkers"` // ensemble size (default: 20)
	Steps   int   `json:"steps"`   // full run length (default: 2000)
	Workers int   `json:"workers"` // parallel likelihood evaluators (default: 1)
	Seed    int64 `json:"seed"`    // RNG seed; 0 seeds from the clock
	// SkipHealthCheck forces the full run even when the short probe would
	// flag a degenerate starting ball.
	SkipHealthCheck bool              `json:"skip_health_check"`
	Likelihood      LikelihoodOptions `json:"likelihood"`
	Debug           bool              `json:"debug"`
}

// DefaultSamplerOptions returns sampling defaults matching a typical run.
func DefaultSamplerOptions() SamplerOptions {
	return SamplerOptions{
		Walkers:    20,
		Steps:      2000,
		Workers:    1,
		Likelihood: DefaultLikelihoodOptions(),
	}
}
