package wave

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LengthMismatch(t *testing.T) {
	_, err := New([]float64{1, 2}, []float64{1})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestComplexRoundTrip(t *testing.T) {
	w, err := New([]float64{1, 0.5, 2}, []float64{0, 1.2, -0.4})
	require.NoError(t, err)

	back := FromComplex(w.Complex())
	require.Equal(t, w.Len(), back.Len())
	for i := range w.Amp {
		assert.InDelta(t, w.Amp[i], back.Amp[i], 1e-12)
		assert.InDelta(t, w.Phase[i], back.Phase[i], 1e-12)
	}
}

func TestUnwrap_LinearPhase(t *testing.T) {
	// A linearly growing phase, wrapped into (-pi, pi], must come back
	// monotonic after unwrapping.
	n := 200
	slope := 0.9
	wrapped := make([]float64, n)
	for i := range wrapped {
		wrapped[i] = math.Mod(slope*float64(i)+math.Pi, 2*math.Pi) - math.Pi
	}
	Unwrap(wrapped)

	for i := 1; i < n; i++ {
		assert.InDelta(t, slope, wrapped[i]-wrapped[i-1], 1e-9, "step %d", i)
	}
}

func TestPeakIndex(t *testing.T) {
	idx, err := PeakIndex([]float64{0.1, 0.3, 0.9, 0.4})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = PeakIndex(nil)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestRepairSpikes(t *testing.T) {
	tests := []struct {
		name     string
		amp      []float64
		want     []float64
		repaired int
	}{
		{
			name:     "isolated 10x spike replaced by previous neighbour",
			amp:      []float64{1.0, 1.1, 11.0, 1.2, 1.1},
			want:     []float64{1.0, 1.1, 1.1, 1.2, 1.1},
			repaired: 1,
		},
		{
			name:     "smooth peak untouched",
			amp:      []float64{0.2, 0.6, 1.0, 0.6, 0.2},
			want:     []float64{0.2, 0.6, 1.0, 0.6, 0.2},
			repaired: 0,
		},
		{
			name:     "two separate spikes",
			amp:      []float64{1, 9, 1, 1, 8, 1},
			want:     []float64{1, 1, 1, 1, 1, 1},
			repaired: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := append([]float64(nil), tt.amp...)
			n := RepairSpikes(got, DefaultSpikeTol)
			assert.Equal(t, tt.repaired, n)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairSpikes_SineEnvelopeUntouched(t *testing.T) {
	amp := make([]float64, 512)
	for i := range amp {
		amp[i] = 1 + math.Sin(float64(i)/40.0)
	}
	orig := append([]float64(nil), amp...)
	assert.Zero(t, RepairSpikes(amp, DefaultSpikeTol))
	assert.Equal(t, orig, amp)
}
