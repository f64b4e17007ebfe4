// Package wave holds the primitive waveform representation shared by the
// generation, alignment and persistence layers: a pair of amplitude/phase
// series over a common domain axis (time or frequency), plus the small
// numeric utilities (phase unwrapping, peak location, spike repair) the
// dataset builders apply before resampling.
package wave

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

var (
	// ErrLengthMismatch indicates amplitude and phase series of different lengths.
	ErrLengthMismatch = errors.New("wave: amplitude and phase lengths differ")

	// ErrEmpty indicates an empty waveform where samples were required.
	ErrEmpty = errors.New("wave: empty waveform")
)

// DefaultSpikeTol is the relative tolerance used when comparing a sample
// against its neighbouring maxima. Calibrated against generator output;
// see RepairSpikes.
const DefaultSpikeTol = 1e-5

// spikeFactor separates a numerical glitch from a genuine amplitude peak:
// a real merger peak exceeds its neighbours by a few percent at most,
// while generator glitches show up as isolated samples several times
// larger than both neighbours.
const spikeFactor = 2.0

// Waveform is one waveform expressed as amplitude and phase over a domain
// axis owned by the caller. Amp and Phase always have equal length and
// Amp is non-negative by convention.
type Waveform struct {
	Amp   []float64
	Phase []float64
}

// New validates and wraps an amplitude/phase pair.
func New(amp, phase []float64) (Waveform, error) {
	if len(amp) != len(phase) {
		return Waveform{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(amp), len(phase))
	}
	return Waveform{Amp: amp, Phase: phase}, nil
}

// Len returns the number of samples.
func (w Waveform) Len() int { return len(w.Amp) }

// Complex converts the waveform to complex samples amp·exp(i·phase).
func (w Waveform) Complex() []complex128 {
	h := make([]complex128, len(w.Amp))
	for i, a := range w.Amp {
		h[i] = cmplx.Rect(a, w.Phase[i])
	}
	return h
}

// FromComplex decomposes complex samples into amplitude and unwrapped phase.
func FromComplex(h []complex128) Waveform {
	amp := make([]float64, len(h))
	ph := make([]float64, len(h))
	for i, c := range h {
		amp[i] = cmplx.Abs(c)
		ph[i] = cmplx.Phase(c)
	}
	Unwrap(ph)
	return Waveform{Amp: amp, Phase: ph}
}

// Unwrap removes 2π jumps from a phase series in place, accumulating a
// continuous phase instead of one wrapped to (-π, π].
func Unwrap(phase []float64) {
	if len(phase) < 2 {
		return
	}
	offset := 0.0
	prev := phase[0]
	for i := 1; i < len(phase); i++ {
		raw := phase[i]
		d := raw - prev
		if d > math.Pi {
			offset -= 2 * math.Pi
		} else if d < -math.Pi {
			offset += 2 * math.Pi
		}
		prev = raw
		phase[i] = raw + offset
	}
}

// PeakIndex locates the sample of maximum amplitude (the merger in a
// time-domain waveform). Returns an error for an empty series.
func PeakIndex(amp []float64) (int, error) {
	if len(amp) == 0 {
		return 0, ErrEmpty
	}
	best := 0
	for i, a := range amp {
		if a > amp[best] {
			best = i
		}
	}
	return best, nil
}

// RepairSpikes replaces isolated amplitude glitches in place. A sample is a
// glitch when it exceeds both neighbouring maxima by an implausible factor
// (beyond relTol); the sample is overwritten with its previous neighbour's
// value rather than discarding the whole waveform. Smooth series, including
// genuine merger peaks, are untouched. Returns the number of repairs.
//
// The threshold and replace-by-neighbour policy mirror the numerical
// artifacts of the effective-one-body generator; recalibrate relTol when
// switching simulators.
func RepairSpikes(amp []float64, relTol float64) int {
	if relTol <= 0 {
		relTol = DefaultSpikeTol
	}
	repaired := 0
	for i := 1; i < len(amp)-1; i++ {
		hi := math.Max(amp[i-1], amp[i+1])
		if amp[i] > hi*spikeFactor*(1+relTol) {
			amp[i] = amp[i-1]
			repaired++
		}
	}
	return repaired
}
