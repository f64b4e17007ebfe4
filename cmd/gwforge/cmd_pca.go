package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gwforge/gwforge/internal/datafile"
	"github.com/gwforge/gwforge/internal/pca"
)

func newPCACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pca",
		Short: "Fit principal-component models to datasets",
	}
	cmd.AddCommand(newPCAFitCmd())
	return cmd
}

func newPCAFitCmd() *cobra.Command {
	var (
		k       int
		target  string
		out     string
		maxRows int
	)
	cmd := &cobra.Command{
		Use:   "fit <dataset>",
		Short: "Fit a PCA model to the amplitude or phase block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPCAFit(args[0], out, target, k, maxRows)
		},
	}
	cmd.Flags().IntVarP(&k, "components", "k", 8, "number of principal components")
	cmd.Flags().StringVar(&target, "target", "amp", "block to fit: amp or ph")
	cmd.Flags().StringVarP(&out, "out", "o", "", "model output path (JSON)")
	cmd.Flags().IntVar(&maxRows, "rows", 0, "limit training rows (0 = all)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runPCAFit(path, out, target string, k, maxRows int) error {
	ds, err := datafile.Load(path, datafile.LoadOptions{MaxRows: maxRows})
	if err != nil {
		return err
	}

	var block [][]float64
	switch target {
	case "amp":
		block = ds.Amp
	case "ph":
		block = ds.Ph
	default:
		return fmt.Errorf("unknown target %q (want amp or ph)", target)
	}

	model, err := pca.Fit(block, k)
	if err != nil {
		return err
	}
	if err := model.Save(out); err != nil {
		return err
	}

	explained := 0.0
	for _, r := range model.ExplainedRatio() {
		explained += r
	}
	log.Info().
		Str("dataset", path).
		Str("target", target).
		Int("rows", len(block)).
		Int("k", k).
		Float64("explained", explained).
		Str("model", out).
		Msg("pca model fitted")
	fmt.Printf("fitted %d components on %d rows (%.4f%% variance) -> %s\n",
		k, len(block), 100*explained, out)
	return nil
}
