package match

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthWaveform builds a chirp-like amplitude/phase pair for tests.
func synthWaveform(n int, a0, slope float64) (amp, ph []float64) {
	amp = make([]float64, n)
	ph = make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		amp[i] = a0 * (1 - 0.5*x)
		ph[i] = slope*x*x + 0.3*x
	}
	return amp, ph
}

func toComplex(amp, ph []float64) []complex128 {
	h := make([]complex128, len(amp))
	for i := range amp {
		h[i] = cmplx.Rect(amp[i], ph[i])
	}
	return h
}

func TestScalar_UnitSamples(t *testing.T) {
	// Identical real waveforms: 4·Σ(1·1·cos 0)·df. Unit bandwidth across
	// the four samples (df=0.25) gives exactly 4; df=1 scales to 16.
	amp := []float64{1, 1, 1, 1}
	ph := []float64{0, 0, 0, 0}

	got, err := Scalar(amp, ph, amp, ph, 0.25, nil)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-12)

	got, err = Scalar(amp, ph, amp, ph, 1.0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 16.0, got, 1e-12)

	f, err := Mismatch(amp, ph, amp, ph, 1.0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, f, 1e-12)
}

func TestScalar_SelfIsRealNonNegativeDeterministic(t *testing.T) {
	amp, ph := synthWaveform(256, 2.0, 40)

	a, err := Scalar(amp, ph, amp, ph, 0.5, nil)
	require.NoError(t, err)
	b, err := Scalar(amp, ph, amp, ph, 0.5, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, a, 0.0)
	assert.Equal(t, a, b)
}

func TestScalar_ShapeErrors(t *testing.T) {
	amp, ph := synthWaveform(8, 1, 1)

	_, err := Scalar(amp, ph[:4], amp, ph, 1, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Scalar(amp, ph, amp, ph, 1, make([]float64, 3))
	assert.ErrorIs(t, err, ErrPSDShape)
}

func TestScalar_PSDWeighting(t *testing.T) {
	amp := []float64{1, 1}
	ph := []float64{0, 0}
	psd := []float64{2, 2}

	got, err := Scalar(amp, ph, amp, ph, 1, psd)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-12) // halved by the PSD
}

func TestMismatch_SelfIsZero(t *testing.T) {
	amp, ph := synthWaveform(512, 1.3, 70)
	f, err := Mismatch(amp, ph, amp, ph, 0.25, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, f, 1e-12)
}

func TestMismatch_ZeroNorm(t *testing.T) {
	zero := make([]float64, 16)
	amp, ph := synthWaveform(16, 1, 5)

	_, err := Mismatch(zero, zero, amp, ph, 1, nil)
	assert.ErrorIs(t, err, ErrZeroNorm)
}

func TestOptimalMismatch_NeverWorseThanPlain(t *testing.T) {
	amp1, ph1 := synthWaveform(256, 1.0, 55)
	amp2, ph2 := synthWaveform(256, 0.9, 55)
	for i := range ph2 {
		ph2[i] += 0.7 // constant offset the alignment should undo
	}

	plain, err := Mismatch(amp1, ph1, amp2, ph2, 1, nil)
	require.NoError(t, err)

	opt, _, err := OptimalMismatch(toComplex(amp1, ph1), toComplex(amp2, ph2))
	require.NoError(t, err)

	assert.LessOrEqual(t, opt, plain+1e-12)
	assert.InDelta(t, 0, opt, 1e-9) // pure phase offset is fully removable
}

func TestOptimalMismatch_PhiRoundTrip(t *testing.T) {
	amp1, ph1 := synthWaveform(128, 1.0, 33)
	amp2, ph2 := synthWaveform(128, 1.2, 35) // genuinely different waveform

	h1 := toComplex(amp1, ph1)
	h2 := toComplex(amp2, ph2)

	opt, phi, err := OptimalMismatch(h1, h2)
	require.NoError(t, err)

	// Rotate h2 by the reported phi and recompute the plain mismatch.
	rot := make([]complex128, len(h2))
	for i, c := range h2 {
		rot[i] = c * cmplx.Exp(complex(0, phi))
	}
	w2 := make([]float64, len(rot))
	a2 := make([]float64, len(rot))
	for i, c := range rot {
		a2[i] = cmplx.Abs(c)
		w2[i] = cmplx.Phase(c)
	}
	plain, err := Mismatch(amp1, ph1, a2, w2, 1, nil)
	require.NoError(t, err)

	assert.InDelta(t, opt, plain, 1e-9)
}

func TestOptimalOverlap_IdenticalIsOne(t *testing.T) {
	amp, ph := synthWaveform(64, 0.8, 21)
	h := toComplex(amp, ph)

	overlap, phi, err := OptimalOverlap(h, h)
	require.NoError(t, err)
	assert.InDelta(t, 1, overlap, 1e-12)
	assert.InDelta(t, 0, phi, 1e-12)
}

func TestOptimalMismatchBatch(t *testing.T) {
	amp, ph := synthWaveform(64, 1, 12)
	h := toComplex(amp, ph)
	rot := make([]complex128, len(h))
	for i, c := range h {
		rot[i] = c * cmplx.Exp(complex(0, math.Pi/3))
	}

	ms, phis, err := OptimalMismatchBatch([][]complex128{h, h}, [][]complex128{h, rot})
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.InDelta(t, 0, ms[0], 1e-12)
	assert.InDelta(t, 0, ms[1], 1e-12)
	assert.InDelta(t, 0, phis[0], 1e-12)
	assert.InDelta(t, -math.Pi/3, phis[1], 1e-9)
}
