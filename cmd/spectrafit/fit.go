package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jhw/go-spectrafit/pkg/spectrafit"
)

func newFitCommand() *cobra.Command {
	var (
		configPath string
		calibPos   float64
		peaks      int
		steps      int
		workers    int
		refine     bool
		skipHealth bool
	)

	cmd := &cobra.Command{
		Use:   "fit <spectrum.json>",
		Short: "Sample the posterior of a peak model for one spectrum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadFitConfig(configPath)
			if err != nil {
				return err
			}
			// Flags override the config file where set.
			if cmd.Flags().Changed("calib-position") {
				cfg.CalibPosition = calibPos
			}
			if cmd.Flags().Changed("peaks") {
				cfg.Peaks = peaks
			}
			if cmd.Flags().Changed("steps") {
				cfg.Sampler.Steps = steps
			}
			if cmd.Flags().Changed("workers") {
				cfg.Sampler.Workers = workers
			}
			if cmd.Flags().Changed("refine") {
				cfg.Refine = refine
			}
			if cmd.Flags().Changed("skip-health-check") {
				cfg.Sampler.SkipHealthCheck = skipHealth
			}
			return runFit(cmd, args[0], cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().Float64Var(&calibPos, "calib-position", 0, "approximate calibration line position")
	cmd.Flags().IntVar(&peaks, "peaks", 2, "number of peaks in the model (1 or 2)")
	cmd.Flags().IntVar(&steps, "steps", 0, "sampler steps")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel likelihood workers")
	cmd.Flags().BoolVar(&refine, "refine", false, "refine starting guesses with a least-squares pre-fit")
	cmd.Flags().BoolVar(&skipHealth, "skip-health-check", false, "run even if the acceptance probe flags a degenerate start")
	return cmd
}

func runFit(cmd *cobra.Command, path string, cfg fitConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open spectrum: %w", err)
	}
	defer f.Close()
	spec, err := spectrafit.ReadSpectrum(f)
	if err != nil {
		return err
	}

	result, err := spectrafit.RunSampler(spectrafit.SamplerRequest{
		Spectrum:      spec,
		Peaks:         cfg.Peaks,
		CalibPosition: cfg.CalibPosition,
		Guess: &spectrafit.GuessConfig{
			Refine: cfg.Refine,
		},
		Options: cfg.samplerOptions(),
	})
	if err != nil {
		var hcErr *spectrafit.HealthCheckError
		if errors.As(err, &hcErr) {
			return fmt.Errorf("%w (rerun with --skip-health-check to force, or adjust the starting guesses)", err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sampled %d walkers x %d steps in %s (mean acceptance %.3f)\n",
		result.Chain.Walkers(), result.Chain.Steps(), result.ProcessingTime.Round(1e7),
		result.Chain.MeanAcceptanceFraction())

	samples, err := result.Chain.Flatten(cfg.BurnIn, cfg.KeepStuck)
	if err != nil {
		return err
	}
	sets, err := samples.CredibleIntervals(cfg.Levels)
	if err != nil {
		return err
	}

	for i, level := range cfg.Levels {
		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetTitle(fmt.Sprintf("%.0f%% credible intervals", level*100))
		tw.AppendHeader(table.Row{"parameter", "median", "+", "-"})
		for _, label := range samples.Labels {
			ci := sets[i][label]
			tw.AppendRow(table.Row{label,
				fmt.Sprintf("%.6g", ci.Median),
				fmt.Sprintf("%.3g", ci.Upper),
				fmt.Sprintf("%.3g", ci.Lower)})
		}
		tw.Render()
	}
	return nil
}
