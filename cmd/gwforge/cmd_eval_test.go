package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwforge/gwforge/internal/datafile"
)

func writeEvalDataset(t *testing.T, path, domain string, grid []float64, rows int) {
	t.Helper()
	hdr := datafile.Header{
		NGrid:  len(grid),
		Domain: domain,
		Step:   1.0,
		Ranges: []datafile.NamedRange{
			{Name: "q", Lo: 1, Hi: 3},
			{Name: "s1", Lo: 0, Hi: 0},
			{Name: "s2", Lo: 0, Hi: 0},
		},
	}
	w, err := datafile.OpenWriter(path, hdr, grid)
	require.NoError(t, err)
	for r := 0; r < rows; r++ {
		amp := make([]float64, len(grid))
		ph := make([]float64, len(grid))
		for i := range amp {
			amp[i] = 1 + 0.1*float64(r)
			ph[i] = 0.2 * float64(i)
		}
		require.NoError(t, w.WriteRow([]float64{1 + float64(r), 0, 0}, amp, ph))
	}
	require.NoError(t, w.Close())
}

func TestEvalMismatchRejectsTimeDomainDatasets(t *testing.T) {
	dir := t.TempDir()
	td := filepath.Join(dir, "td.dat")
	fd := filepath.Join(dir, "fd.dat")
	writeEvalDataset(t, td, "time", []float64{-3, -2, -1, 0}, 1)
	writeEvalDataset(t, fd, "frequency", []float64{10, 20, 30, 40}, 1)

	err := runEvalMismatch(td, fd, 0, "flat", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frequency-domain")

	err = runEvalMismatch(fd, td, 0, "flat", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frequency-domain")
}

func TestEvalMismatchSelfComparison(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fd.dat")
	writeEvalDataset(t, path, "frequency", []float64{10, 20, 30, 40}, 2)
	require.NoError(t, runEvalMismatch(path, path, 0, "flat", ""))
}
