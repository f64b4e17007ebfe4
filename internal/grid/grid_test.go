package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformTime(t *testing.T) {
	ts, err := UniformTime(4, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{-4, -3, -2, -1, 0}, ts)
}

func TestPowerLawTime_ConcentratesNearMerger(t *testing.T) {
	lin, err := PowerLawTime(10, 0, 101, 1.0)
	require.NoError(t, err)
	dense, err := PowerLawTime(10, 0, 101, 0.5)
	require.NoError(t, err)

	// both grids share the endpoints
	assert.Equal(t, -10.0, lin[0])
	assert.Equal(t, -10.0, dense[0])
	assert.Equal(t, 0.0, lin[100])
	assert.Equal(t, 0.0, dense[100])

	// smaller alpha puts more points in the last second before merger
	countNear := func(ts []float64) int {
		n := 0
		for _, v := range ts {
			if v > -1 {
				n++
			}
		}
		return n
	}
	assert.Greater(t, countNear(dense), countNear(lin))

	// monotonicity
	for i := 1; i < len(dense); i++ {
		assert.Less(t, dense[i-1], dense[i])
	}
}

func TestPowerLawTime_Validation(t *testing.T) {
	_, err := PowerLawTime(10, 0, 64, 0)
	assert.ErrorIs(t, err, ErrBadAlpha)
	_, err = PowerLawTime(10, 0, 64, 1.5)
	assert.ErrorIs(t, err, ErrBadAlpha)
	_, err = PowerLawTime(-1, 0, 64, 0.5)
	assert.ErrorIs(t, err, ErrBadRange)
	_, err = PowerLawTime(10, 0, 1, 0.5)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestFreqGrids(t *testing.T) {
	fs, err := UniformFreq(15, 1024, 100)
	require.NoError(t, err)
	assert.Equal(t, 15.0, fs[0])
	assert.Equal(t, 1024.0, fs[99])

	ls, err := LogFreq(15, 1024, 100)
	require.NoError(t, err)
	assert.Equal(t, 15.0, ls[0])
	assert.InDelta(t, 1024.0, ls[99], 1e-9)

	// log spacing: constant ratio between consecutive points
	r := ls[1] / ls[0]
	for i := 2; i < len(ls); i++ {
		assert.InDelta(t, r, ls[i]/ls[i-1], 1e-9)
	}

	_, err = LogFreq(0, 100, 10)
	assert.ErrorIs(t, err, ErrBadRange)
}

func TestResample_RoundTripSmoothInput(t *testing.T) {
	// Constant amplitude, linearly increasing phase: resampling onto a
	// finer grid and back must reproduce the originals up to
	// interpolation error.
	n := 64
	src := make([]float64, n)
	phase := make([]float64, n)
	for i := range src {
		src[i] = float64(i) * 0.5
		phase[i] = 2.5 * src[i]
	}

	fine := make([]float64, 4*n)
	for i := range fine {
		fine[i] = src[0] + (src[n-1]-src[0])*float64(i)/float64(len(fine)-1)
	}

	up, err := Resample(src, phase, fine)
	require.NoError(t, err)
	back, err := Resample(fine, up, src)
	require.NoError(t, err)

	for i := range phase {
		assert.InDelta(t, phase[i], back[i], 1e-9, "sample %d", i)
	}
}

func TestResample_ClampsOutsideSource(t *testing.T) {
	y, err := Resample([]float64{0, 1, 2}, []float64{10, 20, 30}, []float64{-5, 0.5, 99})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 15, 30}, y)
}

func TestResample_Errors(t *testing.T) {
	_, err := Resample([]float64{0, 1}, []float64{1}, []float64{0})
	assert.Error(t, err)

	_, err = Resample([]float64{0, 0, 1}, []float64{1, 2, 3}, []float64{0})
	assert.ErrorIs(t, err, ErrNotIncreasing)

	_, err = Resample([]float64{0}, []float64{1}, []float64{0})
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestStep(t *testing.T) {
	assert.Equal(t, 0.25, Step([]float64{0, 0.25, 0.5}))
	assert.Equal(t, 0.0, Step([]float64{1}))
	assert.InDelta(t, 0.0, Step(nil), math.SmallestNonzeroFloat64)
}
