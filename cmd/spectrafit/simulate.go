package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhw/go-spectrafit/pkg/spectrafit"
)

func newSimulateCommand() *cobra.Command {
	var (
		out    string
		seed   int64
		points int
		xLow   float64
		xHigh  float64
		p      spectrafit.TwoPeakParams
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a synthetic two-peak spectrum under the noise model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed))
			x := spectrafit.LinearRange(xLow, xHigh, points)
			spec := spectrafit.SimulateSpectrum(x, p, rng)
			spec.Metadata["generator"] = "spectrafit simulate"
			spec.Metadata["seed"] = seed

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			return spectrafit.WriteSpectrum(w, spec)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (0 uses the clock)")
	cmd.Flags().IntVar(&points, "points", 512, "number of samples")
	cmd.Flags().Float64Var(&xLow, "x-low", 710, "first wavelength")
	cmd.Flags().Float64Var(&xHigh, "x-high", 750, "last wavelength")
	cmd.Flags().Float64Var(&p.Amp1, "amp1", 500, "broad peak amplitude")
	cmd.Flags().Float64Var(&p.Amp2, "amp2", 300, "calibration peak amplitude")
	cmd.Flags().Float64Var(&p.CenterOffset, "center-offset", 18, "broad peak offset from the calibration line")
	cmd.Flags().Float64Var(&p.CalibCenter, "calib-center", 720, "calibration line position")
	cmd.Flags().Float64Var(&p.Width1, "width1", 2, "broad peak FWHM")
	cmd.Flags().Float64Var(&p.Width2, "width2", 0.02, "calibration peak FWHM")
	cmd.Flags().Float64Var(&p.LightBackground, "light-background", 5, "shot-noise background level")
	cmd.Flags().Float64Var(&p.CCDBackground, "ccd-background", 100, "CCD background offset")
	cmd.Flags().Float64Var(&p.CCDStdev, "ccd-stdev", 10, "CCD read-noise standard deviation")
	return cmd
}
