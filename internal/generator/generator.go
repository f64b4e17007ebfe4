// Package generator adapts external waveform simulators behind one
// capability interface. Two backends exist: an in-process closed-form
// approximant, and an adapter that shells out to any simulator executable
// speaking a small JSON contract. The dataset builders pick one at
// construction time and never branch on backend identity afterwards.
package generator

import "context"

// TDWaveform is a time-domain waveform: plus and cross polarizations over
// a time axis with the merger at t=0.
type TDWaveform struct {
	Times  []float64
	HPlus  []float64
	HCross []float64
}

// FDWaveform is a frequency-domain waveform given as amplitude and phase
// of the strain over a frequency axis.
type FDWaveform struct {
	Freqs []float64
	Amp   []float64
	Phase []float64
}

// Generator produces polarizations for one parameter record. A failure for
// particular (valid) parameters is reported as ErrGeneration and callers
// are expected to skip the draw rather than abort.
type Generator interface {
	// GenerateTD produces a time-domain waveform sampled at p.TimeStep,
	// starting either at p.FMin or p.TimeToCoal before merger.
	GenerateTD(ctx context.Context, p Params) (TDWaveform, error)

	// GenerateFD produces a frequency-domain waveform over [p.FMin, p.FMax]
	// at p.FreqStep.
	GenerateFD(ctx context.Context, p Params) (FDWaveform, error)
}

// Config carries the in-process backend configuration the original
// implementation kept in lazily initialised globals. It is built once by
// the caller and passed explicitly into the backend.
type Config struct {
	// RingdownCycles controls how long past merger the analytic backend
	// keeps generating, in ringdown e-folding times.
	RingdownCycles float64
}

// DefaultConfig returns the configuration used when the caller does not
// override anything.
func DefaultConfig() Config {
	return Config{
		RingdownCycles: 8,
	}
}
