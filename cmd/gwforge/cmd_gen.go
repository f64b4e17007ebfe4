package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gwforge/gwforge/internal/config"
	"github.com/gwforge/gwforge/internal/dataset"
	"github.com/gwforge/gwforge/internal/metrics"
)

// genFlags are the overrides shared by both domains.
type genFlags struct {
	configPath string
	output     string
	samples    int
	seed       uint64
	metrics    string
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a waveform dataset",
	}
	cmd.AddCommand(newGenTDCmd(), newGenFDCmd())
	return cmd
}

func addGenFlags(cmd *cobra.Command, f *genFlags) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "run configuration YAML")
	cmd.Flags().StringVarP(&f.output, "out", "o", "", "dataset output path (overrides config)")
	cmd.Flags().IntVarP(&f.samples, "samples", "n", 0, "row count (overrides config)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "sampler seed (overrides config)")
	cmd.Flags().StringVar(&f.metrics, "metrics", "", "serve Prometheus metrics on this address")
}

func newGenTDCmd() *cobra.Command {
	var flags genFlags
	cmd := &cobra.Command{
		Use:   "td",
		Short: "Generate a time-domain dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.Context(), "time", flags)
		},
	}
	addGenFlags(cmd, &flags)
	return cmd
}

func newGenFDCmd() *cobra.Command {
	var flags genFlags
	cmd := &cobra.Command{
		Use:   "fd",
		Short: "Generate a frequency-domain dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.Context(), "frequency", flags)
		},
	}
	addGenFlags(cmd, &flags)
	return cmd
}

// loadConfig merges the optional YAML file and the flag overrides.
func loadConfig(domain string, flags genFlags) (*config.Config, error) {
	var cfg *config.Config
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := config.Default()
		cfg = &def
	}

	cfg.Domain = domain
	if flags.output != "" {
		cfg.Output = flags.output
	}
	if flags.samples > 0 {
		cfg.Samples = flags.samples
	}
	if flags.seed != 0 {
		cfg.Seed = flags.seed
	}
	if flags.metrics != "" {
		cfg.MetricsAddr = flags.metrics
	}
	return cfg, cfg.Validate()
}

func runGen(parent context.Context, domain string, flags genFlags) error {
	cfg, err := loadConfig(domain, flags)
	if err != nil {
		return err
	}
	if cfg.Output == "" {
		return errors.New("no output path: pass --out or set output in the config")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var col *metrics.Collector
	if cfg.MetricsAddr != "" {
		col = metrics.NewCollector()
		col.Serve(cfg.MetricsAddr)
	}

	gen, err := cfg.Generator()
	if err != nil {
		return err
	}
	space, err := cfg.Space()
	if err != nil {
		return err
	}

	log.Info().
		Str("domain", domain).
		Int("samples", cfg.Samples).
		Int("n_grid", cfg.NGrid).
		Str("backend", cfg.Backend.Kind).
		Str("out", cfg.Output).
		Msg("starting dataset generation")

	var stats dataset.Stats
	var manifest dataset.Manifest
	switch domain {
	case "time":
		b, err := dataset.NewTDBuilder(gen, space, cfg.TDConfig(), col)
		if err != nil {
			return err
		}
		sink, err := dataset.NewStreamingSink(cfg.Output, b.Header(), b.Grid())
		if err != nil {
			return err
		}
		defer sink.Close()
		if stats, err = b.Run(ctx, sink); err != nil {
			return err
		}
		manifest = dataset.NewManifest(cfg.Output, b.Header(), stats, cfg.TDConfig())
	case "frequency":
		b, err := dataset.NewFDBuilder(gen, space, cfg.FDConfig(), col)
		if err != nil {
			return err
		}
		sink, err := dataset.NewStreamingSink(cfg.Output, b.Header(), b.Grid())
		if err != nil {
			return err
		}
		defer sink.Close()
		if stats, err = b.Run(ctx, sink); err != nil {
			return err
		}
		manifest = dataset.NewManifest(cfg.Output, b.Header(), stats, cfg.FDConfig())
	default:
		return fmt.Errorf("unknown domain %q", domain)
	}

	if err := manifest.Write(); err != nil {
		return err
	}
	log.Info().
		Str("run_id", manifest.RunID).
		Int("generated", stats.Generated).
		Int("skipped", stats.Skipped).
		Int("repaired", stats.Repaired).
		Msg("dataset complete")
	return nil
}
