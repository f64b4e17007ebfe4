package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "gwforge"
	version = "v0.3.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Version: version,
		Short:   "Generate and inspect gravitational waveform datasets",
		Long: `gwforge generates datasets of compact-binary waveforms on shared
time or frequency grids, evaluates mismatches between datasets, and fits
principal-component models to them.`,
		SilenceUsage: true,
	}

	verbose := rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	cobra.OnInitialize(func() {
		if *verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	})

	rootCmd.AddCommand(newGenCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newDatasetCmd())
	rootCmd.AddCommand(newPCACmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
