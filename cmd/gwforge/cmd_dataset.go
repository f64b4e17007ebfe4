package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gwforge/gwforge/internal/datafile"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect dataset files",
	}
	cmd.AddCommand(newDatasetInfoCmd())
	return cmd
}

func newDatasetInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Print header and shape of a dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasetInfo(args[0])
		},
	}
	return cmd
}

func runDatasetInfo(path string) error {
	ds, err := datafile.Load(path, datafile.LoadOptions{})
	if err != nil {
		return err
	}

	hdr := ds.Header
	fmt.Printf("file:    %s\n", path)
	fmt.Printf("domain:  %s\n", hdr.Domain)
	fmt.Printf("rows:    %d\n", ds.Rows())
	fmt.Printf("n_grid:  %d\n", hdr.NGrid)
	fmt.Printf("step:    %g\n", hdr.Step)
	if hdr.Domain == "time" {
		fmt.Printf("t_coal:  %g s\n", hdr.TCoal)
	}
	if n := len(ds.Grid); n > 0 {
		fmt.Printf("grid:    [%g, %g]\n", ds.Grid[0], ds.Grid[n-1])
	}
	for _, r := range hdr.Ranges {
		if r.Lo == r.Hi {
			fmt.Printf("%-8s %g (fixed)\n", r.Name+":", r.Lo)
		} else {
			fmt.Printf("%-8s [%g, %g]\n", r.Name+":", r.Lo, r.Hi)
		}
	}
	return nil
}
