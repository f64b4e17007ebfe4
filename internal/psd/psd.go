// Package psd provides noise power spectral densities used to weight the
// scalar product: an analytic ground-interferometer fit, a flat PSD, and a
// loader for two-column text PSD files resampled onto a target grid.
package psd

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gwforge/gwforge/internal/grid"
)

// ErrEmptyPSD indicates a PSD file with no usable samples.
var ErrEmptyPSD = errors.New("psd: no samples")

// Flat returns a uniform PSD of the given value over n samples.
func Flat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// AnalyticGround evaluates an analytic fit to a ground-based interferometer
// noise curve on the given frequency grid. The fit is the standard
// initial-detector form S(f) = S0·[(f0/f)^4 + 2(1 + (f/f0)^2)] with
// f0 = 150 Hz and S0 = 9e-46; frequencies at or below zero get +Inf so
// they carry no weight in the scalar product.
func AnalyticGround(freqs []float64) []float64 {
	const (
		f0 = 150.0
		s0 = 9e-46
	)
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		if f <= 0 {
			out[i] = math.Inf(1)
			continue
		}
		x := f / f0
		out[i] = s0 * (math.Pow(1/x, 4) + 2*(1+x*x))
	}
	return out
}

// Load reads a two-column "frequency value" text PSD file (comment lines
// starting with #) and resamples it onto the target frequency grid.
func Load(path string, freqs []float64) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("psd: open: %w", err)
	}
	defer f.Close()

	var xs, ys []float64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<22)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("psd: malformed line %q", line)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("psd: parse frequency: %w", err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("psd: parse value: %w", err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("psd: read: %w", err)
	}
	if len(xs) < 2 {
		return nil, ErrEmptyPSD
	}

	out, err := grid.Resample(xs, ys, freqs)
	if err != nil {
		return nil, fmt.Errorf("psd: resample: %w", err)
	}
	return out, nil
}
