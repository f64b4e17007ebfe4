// Package grid builds the shared domain grids all waveforms of a dataset
// are resampled onto (uniform or power-law-distorted time grids, uniform or
// log-spaced frequency grids) and performs the 1-D resampling itself.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

var (
	// ErrBadAlpha indicates a distortion exponent outside (0, 1].
	ErrBadAlpha = errors.New("grid: alpha must be in (0, 1]")

	// ErrBadRange indicates an empty or inverted domain range.
	ErrBadRange = errors.New("grid: invalid domain range")

	// ErrTooFewPoints indicates a grid of fewer than two points.
	ErrTooFewPoints = errors.New("grid: at least two points required")

	// ErrNotIncreasing indicates a source axis that is not strictly increasing.
	ErrNotIncreasing = errors.New("grid: source axis must be strictly increasing")
)

// UniformTime returns n equally spaced times over [-tCoal, tEnd] with the
// merger at t=0.
func UniformTime(tCoal, tEnd float64, n int) ([]float64, error) {
	return PowerLawTime(tCoal, tEnd, n, 1.0)
}

// PowerLawTime returns n times over [-tCoal, tEnd] distorted by exponent
// alpha in (0, 1]: a uniform variable u in [-1, uEnd] is mapped through
// t = sign(u)·|u|^(1/alpha)·tCoal, which concentrates samples near the
// merger (t=0) as alpha shrinks. alpha=1 recovers the uniform grid.
func PowerLawTime(tCoal, tEnd float64, n int, alpha float64) ([]float64, error) {
	if n < 2 {
		return nil, ErrTooFewPoints
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: got %g", ErrBadAlpha, alpha)
	}
	if tCoal <= 0 || tEnd < 0 {
		return nil, fmt.Errorf("%w: tCoal=%g tEnd=%g", ErrBadRange, tCoal, tEnd)
	}

	uEnd := math.Pow(tEnd/tCoal, alpha)
	ts := make([]float64, n)
	du := (uEnd + 1) / float64(n-1)
	for i := range ts {
		u := -1 + du*float64(i)
		ts[i] = math.Copysign(math.Pow(math.Abs(u), 1/alpha), u) * tCoal
	}
	// endpoints exactly, free of pow round-off
	ts[0] = -tCoal
	ts[n-1] = tEnd
	return ts, nil
}

// UniformFreq returns n equally spaced frequencies over [fMin, fMax].
func UniformFreq(fMin, fMax float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, ErrTooFewPoints
	}
	if fMin < 0 || fMax <= fMin {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrBadRange, fMin, fMax)
	}
	fs := make([]float64, n)
	df := (fMax - fMin) / float64(n-1)
	for i := range fs {
		fs[i] = fMin + df*float64(i)
	}
	fs[n-1] = fMax
	return fs, nil
}

// LogFreq returns n log-spaced frequencies over [fMin, fMax], fMin > 0.
func LogFreq(fMin, fMax float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, ErrTooFewPoints
	}
	if fMin <= 0 || fMax <= fMin {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrBadRange, fMin, fMax)
	}
	fs := make([]float64, n)
	step := (math.Log(fMax) - math.Log(fMin)) / float64(n-1)
	for i := range fs {
		fs[i] = fMin * math.Exp(step*float64(i))
	}
	fs[n-1] = fMax
	return fs, nil
}

// Step returns the first spacing of a grid, the natural df/dt for uniform
// grids and the reference step recorded in dataset headers otherwise.
func Step(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return xs[1] - xs[0]
}

// Resample interpolates (srcX, srcY) onto dstX with piecewise-linear
// interpolation, clamping beyond the source ends. srcX must be strictly
// increasing and match srcY in length.
func Resample(srcX, srcY, dstX []float64) ([]float64, error) {
	if len(srcX) != len(srcY) {
		return nil, fmt.Errorf("grid: axis length %d does not match values %d", len(srcX), len(srcY))
	}
	if len(srcX) < 2 {
		return nil, ErrTooFewPoints
	}
	for i := 1; i < len(srcX); i++ {
		if srcX[i] <= srcX[i-1] {
			return nil, fmt.Errorf("%w: at index %d", ErrNotIncreasing, i)
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(srcX, srcY); err != nil {
		return nil, fmt.Errorf("grid: fit: %w", err)
	}
	out := make([]float64, len(dstX))
	for i, x := range dstX {
		switch {
		case x <= srcX[0]:
			out[i] = srcY[0]
		case x >= srcX[len(srcX)-1]:
			out[i] = srcY[len(srcY)-1]
		default:
			out[i] = pl.Predict(x)
		}
	}
	return out, nil
}
