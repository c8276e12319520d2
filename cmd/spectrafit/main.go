package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "spectrafit",
		Short:         "Bayesian peak inference for photon-counting spectra",
		Long:          "spectrafit fits Lorentzian peak models to single-photon-counting spectra\nunder a compound Poisson/Gaussian noise model, exploring the posterior with\nensemble MCMC and reporting credible intervals.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newFitCommand())
	root.AddCommand(newSimulateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "spectrafit: %v\n", err)
		os.Exit(1)
	}
}
