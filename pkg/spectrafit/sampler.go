package spectrafit

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	// probeSteps is the length of the health-check phase.
	probeSteps = 50
	// healthCheckThreshold is the mean acceptance fraction at or below
	// which a probe run is treated as degenerate.
	healthCheckThreshold = 0.01
	// healthCheckMinSteps: runs this short or shorter skip the probe, the
	// probe would be a significant fraction of the run itself.
	healthCheckMinSteps = 200
	// stretchScale is the Goodman-Weare stretch-move scale parameter.
	stretchScale = 2.0
)

// SamplerRequest contains everything needed for one sampling run.
type SamplerRequest struct {
	Spectrum *Spectrum `json:"spectrum"`
	Peaks    int       `json:"peaks"` // 1 or 2

	// CalibPosition seeds the calibration-line guess when the starting
	// ball is generated internally (two-peak variant).
	CalibPosition float64 `json:"calib_position"`

	// StartingBall overrides heuristic starting-position generation.
	StartingBall *SampleBall `json:"starting_ball,omitempty"`
	// Guess configures heuristic generation when StartingBall is nil.
	// Peaks, Walkers, CalibPosition and Seed are filled in from the
	// request and options.
	Guess *GuessConfig `json:"guess,omitempty"`

	Options SamplerOptions `json:"options"`
}

// SamplerResult is the output of a completed run.
type SamplerResult struct {
	Chain               *Chain        `json:"chain"`
	AcceptanceFractions []float64     `json:"acceptance_fractions"`
	ProcessingTime      time.Duration `json:"processing_time"`
}

// RunSampler explores the posterior of the peak model given a spectrum by
// affine-invariant ensemble MCMC, the algorithm of Goodman & Weare (2010):
// each walker proposes a stretch move along the line to a randomly chosen
// walker in the complementary half-ensemble, which keeps proposals scaled to
// the ensemble's own spread.
//
// When NSteps is large a short probe run first checks the mean acceptance
// fraction; a pathological value aborts with a HealthCheckError before the
// expensive full run (see SamplerOptions.SkipHealthCheck).
func RunSampler(req SamplerRequest) (*SamplerResult, error) {
	start := time.Now()

	variant, err := VariantForPeaks(req.Peaks)
	if err != nil {
		return nil, err
	}
	opts := req.Options
	if opts == (SamplerOptions{}) {
		opts = DefaultSamplerOptions()
	}
	if err := validateSamplerOptions(opts); err != nil {
		return nil, err
	}
	if req.Spectrum == nil || len(req.Spectrum.X) == 0 || len(req.Spectrum.X) != len(req.Spectrum.Y) {
		return nil, &ConfigError{Field: "spectrum", Message: "paired non-empty x and y data required"}
	}

	ball := req.StartingBall
	if ball == nil {
		cfg := GuessConfig{}
		if req.Guess != nil {
			cfg = *req.Guess
		}
		cfg.Peaks = req.Peaks
		if cfg.Walkers == 0 {
			cfg.Walkers = opts.Walkers
		}
		if cfg.CalibPosition == 0 {
			cfg.CalibPosition = req.CalibPosition
		}
		if cfg.Seed == 0 {
			cfg.Seed = opts.Seed
		}
		ball, err = GenerateSampleBall(req.Spectrum, cfg)
		if err != nil {
			return nil, err
		}
	}
	if ball.Variant != variant {
		return nil, &ConfigError{
			Field:   "starting_ball",
			Message: fmt.Sprintf("ball variant %d does not match requested peak count %d", ball.Variant, req.Peaks),
		}
	}
	if ball.Walkers() < 2*variant.Dim() {
		return nil, &ConfigError{
			Field:   "starting_ball",
			Message: fmt.Sprintf("need at least %d walkers for %d dimensions, got %d", 2*variant.Dim(), variant.Dim(), ball.Walkers()),
		}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &ensembleSampler{
		x:       req.Spectrum.X,
		y:       req.Spectrum.Y,
		variant: variant,
		opts:    opts,
		rng:     rand.New(rand.NewSource(seed)),
		chain:   newChain(variant, ball.Walkers()),
	}
	s.initialize(ball)

	if opts.Debug {
		fmt.Printf("sampler: %d walkers, %d steps, %d workers, %s strategy\n",
			ball.Walkers(), opts.Steps, opts.Workers, opts.Likelihood.Strategy)
	}

	remaining := opts.Steps
	if !opts.SkipHealthCheck && opts.Steps > healthCheckMinSteps {
		s.run(probeSteps)
		mean := s.chain.MeanAcceptanceFraction()
		if mean <= healthCheckThreshold {
			return nil, &HealthCheckError{
				MeanAcceptance: mean,
				Threshold:      healthCheckThreshold,
				ProbeSteps:     probeSteps,
				Chain:          s.chain,
			}
		}
		if opts.Debug {
			fmt.Printf("sampler: probe mean acceptance %.3f, continuing\n", mean)
		}
		remaining -= probeSteps
	}
	s.run(remaining)

	return &SamplerResult{
		Chain:               s.chain,
		AcceptanceFractions: s.chain.AcceptanceFractions(),
		ProcessingTime:      time.Since(start),
	}, nil
}

func validateSamplerOptions(opts SamplerOptions) error {
	if opts.Workers < 1 {
		return &ConfigError{
			Field:   "workers",
			Message: fmt.Sprintf("worker count must be a positive integer, got %d", opts.Workers),
		}
	}
	if opts.Steps < 1 {
		return &ConfigError{
			Field:   "steps",
			Message: fmt.Sprintf("step count must be positive, got %d", opts.Steps),
		}
	}
	return opts.Likelihood.validate()
}

// ensembleSampler holds the mutable state of one run. Only the controlling
// goroutine mutates it; workers receive read-only inputs and return scalars.
type ensembleSampler struct {
	x, y    []float64
	variant ModelVariant
	opts    SamplerOptions
	rng     *rand.Rand

	positions [][]float64
	logp      []float64
	chain     *Chain
}

func (s *ensembleSampler) initialize(ball *SampleBall) {
	s.positions = make([][]float64, ball.Walkers())
	for w, pos := range ball.Positions {
		s.positions[w] = append([]float64(nil), pos...)
	}
	s.logp = make([]float64, len(s.positions))
	evals := make([]proposal, len(s.positions))
	for w := range s.positions {
		evals[w] = proposal{walker: w, pos: s.positions[w]}
	}
	s.evaluate(evals)
	for w := range evals {
		s.logp[w] = evals[w].logp
	}
}

// proposal carries one walker's candidate position through the parallel
// evaluation barrier.
type proposal struct {
	walker int
	z      float64
	pos    []float64
	logp   float64
}

// run advances the ensemble by n steps, appending each step to the chain.
func (s *ensembleSampler) run(n int) {
	half := len(s.positions) / 2
	for step := 0; step < n; step++ {
		s.stepHalf(0, half)
		s.stepHalf(half, len(s.positions))
		s.chain.appendStep(s.positions)
	}
}

// stepHalf proposes and applies stretch moves for the walkers in [lo, hi),
// using the complementary walkers as the reference set. All randomness is
// drawn on the controlling goroutine; workers only evaluate likelihoods.
func (s *ensembleSampler) stepHalf(lo, hi int) {
	dim := s.variant.Dim()
	props := make([]proposal, hi-lo)
	for k := lo; k < hi; k++ {
		var j int
		if lo == 0 {
			j = hi + s.rng.Intn(len(s.positions)-hi)
		} else {
			j = s.rng.Intn(lo)
		}
		// Stretch factor z ~ g(z) proportional to 1/sqrt(z) on [1/a, a].
		u := s.rng.Float64()
		z := (u*(stretchScale-1) + 1)
		z = z * z / stretchScale

		ref := s.positions[j]
		cur := s.positions[k]
		pos := make([]float64, dim)
		for d := range pos {
			pos[d] = ref[d] + z*(cur[d]-ref[d])
		}
		props[k-lo] = proposal{walker: k, z: z, pos: pos}
	}

	s.evaluate(props)

	for i := range props {
		p := &props[i]
		logRatio := float64(dim-1)*math.Log(p.z) + p.logp - s.logp[p.walker]
		if logRatio >= 0 || math.Log(s.rng.Float64()) < logRatio {
			s.positions[p.walker] = p.pos
			s.logp[p.walker] = p.logp
			s.chain.accepted[p.walker]++
		}
	}
}

// evaluate fills in the log-likelihood of every proposal, fanning the
// independent evaluations across the configured worker count and barriering
// before returning. Each worker writes only its own proposal entries.
func (s *ensembleSampler) evaluate(props []proposal) {
	workers := s.opts.Workers
	if workers > len(props) {
		workers = len(props)
	}
	if workers <= 1 {
		for i := range props {
			props[i].logp = logLikelihoodVector(s.variant, s.x, s.y, props[i].pos, s.opts.Likelihood, nil)
		}
		return
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				props[i].logp = logLikelihoodVector(s.variant, s.x, s.y, props[i].pos, s.opts.Likelihood, nil)
			}
		}()
	}
	for i := range props {
		idx <- i
	}
	close(idx)
	wg.Wait()
}
