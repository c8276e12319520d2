package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/jhw/go-spectrafit/pkg/spectrafit"
)

// fitConfig is the TOML-configurable surface of a fit run. Every field has
// a default so an empty (or absent) config file is a valid run.
type fitConfig struct {
	Peaks         int       `toml:"peaks"`
	CalibPosition float64   `toml:"calib_position"`
	Refine        bool      `toml:"refine"`
	BurnIn        int       `toml:"burn_in"`
	KeepStuck     bool      `toml:"keep_stuck_walkers"`
	Levels        []float64 `toml:"levels"`

	Sampler samplerConfig `toml:"sampler"`
}

type samplerConfig struct {
	Walkers         int     `toml:"walkers"`
	Steps           int     `toml:"steps"`
	Workers         int     `toml:"workers"`
	Seed            int64   `toml:"seed"`
	SkipHealthCheck bool    `toml:"skip_health_check"`
	Safe            bool    `toml:"safe"`
	GaussianApprox  bool    `toml:"gaussian_approx"`
	ConvRange       float64 `toml:"conv_range"`
}

func defaultFitConfig() fitConfig {
	opts := spectrafit.DefaultSamplerOptions()
	return fitConfig{
		Peaks:  2,
		BurnIn: 200,
		Levels: []float64{0.68},
		Sampler: samplerConfig{
			Walkers:   opts.Walkers,
			Steps:     opts.Steps,
			Workers:   opts.Workers,
			ConvRange: opts.Likelihood.ConvRange,
		},
	}
}

func loadFitConfig(path string) (fitConfig, error) {
	cfg := defaultFitConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c fitConfig) samplerOptions() spectrafit.SamplerOptions {
	likelihood := spectrafit.DefaultLikelihoodOptions()
	if c.Sampler.Safe {
		likelihood = spectrafit.SafeLikelihoodOptions()
	}
	if c.Sampler.ConvRange != 0 {
		likelihood.ConvRange = c.Sampler.ConvRange
	}
	likelihood.GaussianApprox = c.Sampler.GaussianApprox

	return spectrafit.SamplerOptions{
		Walkers:         c.Sampler.Walkers,
		Steps:           c.Sampler.Steps,
		Workers:         c.Sampler.Workers,
		Seed:            c.Sampler.Seed,
		SkipHealthCheck: c.Sampler.SkipHealthCheck,
		Likelihood:      likelihood,
	}
}
