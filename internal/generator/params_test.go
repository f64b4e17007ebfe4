package generator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Params
		wantErr bool
	}{
		{"valid", Params{Mass1: 30, Mass2: 25, Spin1z: 0.3, Distance: 400}, false},
		{"zero mass", Params{Mass1: 0, Mass2: 25, Distance: 400}, true},
		{"spin out of range", Params{Mass1: 30, Mass2: 25, Spin1z: 1.0, Distance: 400}, true},
		{"negative distance", Params{Mass1: 30, Mass2: 25, Distance: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDerivedQuantities(t *testing.T) {
	p := Params{Mass1: 30, Mass2: 30, Spin1z: 0.5, Spin2z: -0.5, Distance: 1}

	assert.Equal(t, 60.0, p.TotalMass())
	assert.InDelta(t, 0.25, p.SymmetricMassRatio(), 1e-15)
	assert.InDelta(t, 0.0, p.EffectiveSpin(), 1e-15)
	// equal masses: Mc = M * 0.25^(3/5)
	assert.InDelta(t, 60*math.Pow(0.25, 0.6), p.ChirpMass(), 1e-12)
}

func TestTimeToCoalescence_Monotonicity(t *testing.T) {
	// Lower starting frequency means more inspiral left.
	lo, err := TimeToCoalescence(20, 30, 25, 0, 0)
	require.NoError(t, err)
	hi, err := TimeToCoalescence(40, 30, 25, 0, 0)
	require.NoError(t, err)
	assert.Greater(t, lo, hi)

	// Heavier systems merge sooner from the same frequency.
	light, err := TimeToCoalescence(20, 10, 10, 0, 0)
	require.NoError(t, err)
	heavy, err := TimeToCoalescence(20, 40, 40, 0, 0)
	require.NoError(t, err)
	assert.Greater(t, light, heavy)
}

func TestTimeToCoalescence_Errors(t *testing.T) {
	_, err := TimeToCoalescence(0, 30, 30, 0, 0)
	assert.ErrorIs(t, err, ErrBadParams)
	_, err = TimeToCoalescence(20, -1, 30, 0, 0)
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestStartFrequency_RoundTrip(t *testing.T) {
	tau, err := TimeToCoalescence(25, 32, 28, 0.2, -0.1)
	require.NoError(t, err)

	f, err := StartFrequency(tau, 32, 28, 0.2, -0.1)
	require.NoError(t, err)
	assert.InDelta(t, 25, f, 25*1e-6)
}

func TestMergerFrequency_ScalesInverselyWithMass(t *testing.T) {
	f20 := MergerFrequency(10, 10)
	f80 := MergerFrequency(40, 40)
	assert.InDelta(t, 4.0, f20/f80, 1e-12)
	assert.Greater(t, f20, 100.0) // stellar-mass mergers sit in band
}

func TestProjectMode(t *testing.T) {
	amp := []float64{1, 2}
	ph := []float64{0, math.Pi / 2}

	// face-on: plus factor 1, cross factor 1
	hp, hc := ProjectMode(amp, ph, 0, 0)
	assert.InDelta(t, 1.0, hp[0], 1e-15)
	assert.InDelta(t, 0.0, hc[0], 1e-15)
	assert.InDelta(t, 0.0, hp[1], 1e-12)
	assert.InDelta(t, 2.0, hc[1], 1e-12)

	// edge-on: cross polarization vanishes, plus halves
	hp, hc = ProjectMode(amp, ph, math.Pi/2, 0)
	assert.InDelta(t, 0.5, hp[0], 1e-12)
	assert.InDelta(t, 0.0, hc[0], 1e-12)
	assert.InDelta(t, 0.0, hc[1], 1e-12)

	// reference phase shifts the argument by 2*phi0
	hp, _ = ProjectMode([]float64{1}, []float64{0}, 0, math.Pi/4)
	assert.InDelta(t, math.Cos(math.Pi/2), hp[0], 1e-12)
}
