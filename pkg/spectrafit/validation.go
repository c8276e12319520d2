package spectrafit

import "fmt"

// ConfigError reports an invalid configuration value. Configuration errors
// are raised synchronously, before any expensive computation, and are never
// silently corrected.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// HealthCheckError reports a degenerate sampling run detected by the short
// probe phase: a mean acceptance fraction this low almost always means the
// starting ball lies in a zero-likelihood region and the full run would be
// wasted. The probe chain is carried for diagnosis; the caller may retry
// with better starting positions or force the run with SkipHealthCheck.
type HealthCheckError struct {
	MeanAcceptance float64 `json:"mean_acceptance"`
	Threshold      float64 `json:"threshold"`
	ProbeSteps     int     `json:"probe_steps"`
	Chain          *Chain  `json:"-"`
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("degenerate sampling: mean acceptance fraction %.4f <= %.4f after %d probe steps",
		e.MeanAcceptance, e.Threshold, e.ProbeSteps)
}

// FitError reports a failed maximum-likelihood refinement. There is no
// automatic fallback to the unrefined guess: a fit that cannot converge
// usually signals a data-quality problem the caller needs to see.
type FitError struct {
	Stage string
	Err   error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("refinement fit failed during %s: %v", e.Stage, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }
