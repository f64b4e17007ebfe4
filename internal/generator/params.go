package generator

import (
	"errors"
	"fmt"
	"math"
)

// Physical constants in SI units, plus the two derived combinations every
// formula below actually uses.
const (
	// SolarMassSeconds is G·M_sun/c^3: one solar mass expressed as time.
	SolarMassSeconds = 4.925491025543576e-6

	// AmpPrefactor is G/c^2 · (M_sun/Mpc): the dimensionless strain scale
	// of one solar mass at one megaparsec.
	AmpPrefactor = 4.7864188273360336e-20

	// MpcMeters is one megaparsec in meters.
	MpcMeters = 3.0856775814913673e22

	// SpeedOfLight in m/s.
	SpeedOfLight = 2.99792458e8
)

var (
	// ErrBadParams indicates physically invalid generation parameters.
	ErrBadParams = errors.New("generator: invalid parameters")

	// ErrGeneration indicates the backend could not produce a waveform for
	// the given (valid) parameters. Builders treat it as skip-and-redraw.
	ErrGeneration = errors.New("generator: generation failed")
)

// Params is the single parameter record both backends consume. Masses are
// in solar masses, spins are the aligned dimensionless components,
// Distance is in Mpc, angles in radians. Exactly one of FMin (starting
// frequency, Hz) or TimeToCoal (seconds before merger) drives the length
// of a time-domain waveform; FD generation uses [FMin, FMax] at FreqStep.
type Params struct {
	Mass1       float64
	Mass2       float64
	Spin1z      float64
	Spin2z      float64
	Distance    float64
	Inclination float64
	RefPhase    float64

	TimeStep   float64
	FMin       float64
	FMax       float64
	FreqStep   float64
	TimeToCoal float64

	Approximant string
}

// Validate rejects parameter records the physics cannot accept. Backend
//-specific failures (a draw the simulator chokes on) surface later as
// ErrGeneration instead.
func (p Params) Validate() error {
	if p.Mass1 <= 0 || p.Mass2 <= 0 {
		return fmt.Errorf("%w: masses must be positive (%g, %g)", ErrBadParams, p.Mass1, p.Mass2)
	}
	if math.Abs(p.Spin1z) >= 1 || math.Abs(p.Spin2z) >= 1 {
		return fmt.Errorf("%w: |spin| must be < 1 (%g, %g)", ErrBadParams, p.Spin1z, p.Spin2z)
	}
	if p.Distance <= 0 {
		return fmt.Errorf("%w: distance must be positive (%g)", ErrBadParams, p.Distance)
	}
	return nil
}

// TotalMass returns m1+m2 in solar masses.
func (p Params) TotalMass() float64 { return p.Mass1 + p.Mass2 }

// SymmetricMassRatio returns eta = m1·m2/(m1+m2)^2, at most 0.25.
func (p Params) SymmetricMassRatio() float64 {
	m := p.TotalMass()
	return p.Mass1 * p.Mass2 / (m * m)
}

// EffectiveSpin returns the mass-weighted aligned spin combination.
func (p Params) EffectiveSpin() float64 {
	return (p.Mass1*p.Spin1z + p.Mass2*p.Spin2z) / p.TotalMass()
}

// ChirpMass returns the chirp mass in solar masses.
func (p Params) ChirpMass() float64 {
	return p.TotalMass() * math.Pow(p.SymmetricMassRatio(), 3.0/5.0)
}

// TimeToCoalescence estimates the remaining time to merger from a starting
// GW frequency, using the post-Newtonian chirp time truncated at 1.5PN
// with the leading aligned-spin correction:
//
//	tau = (5/(256 eta)) · M_s · x^-4 · [1 + (743/252 + 11 eta/3)·x
//	      − (32 pi/5 − 113 chi/12)·x^(3/2)]
//
// with x = (pi·f·M_s)^(2/3) and M_s the total mass in seconds. Good to a
// few percent across the calibration range; used only to pick safe
// starting frequencies, never for phasing.
func TimeToCoalescence(f, m1, m2, s1z, s2z float64) (float64, error) {
	p := Params{Mass1: m1, Mass2: m2, Spin1z: s1z, Spin2z: s2z, Distance: 1}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("%w: frequency must be positive (%g)", ErrBadParams, f)
	}

	eta := p.SymmetricMassRatio()
	chi := p.EffectiveSpin()
	ms := p.TotalMass() * SolarMassSeconds
	x := math.Pow(math.Pi*f*ms, 2.0/3.0)

	tau := 5.0 / (256.0 * eta) * ms / (x * x * x * x)
	tau *= 1 + (743.0/252.0+11.0*eta/3.0)*x - (32.0*math.Pi/5.0-113.0*chi/12.0)*math.Pow(x, 1.5)
	if tau <= 0 || math.IsNaN(tau) {
		return 0, fmt.Errorf("%w: no inspiral left at f=%g Hz", ErrGeneration, f)
	}
	return tau, nil
}

// StartFrequency inverts TimeToCoalescence: the GW frequency at which the
// binary is tau seconds from merger. Solved by fixed-point refinement of
// the Newtonian inversion.
func StartFrequency(tau, m1, m2, s1z, s2z float64) (float64, error) {
	p := Params{Mass1: m1, Mass2: m2, Spin1z: s1z, Spin2z: s2z, Distance: 1}
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if tau <= 0 {
		return 0, fmt.Errorf("%w: tau must be positive (%g)", ErrBadParams, tau)
	}

	eta := p.SymmetricMassRatio()
	ms := p.TotalMass() * SolarMassSeconds

	// Newtonian seed, then refine against the PN chirp time.
	f := math.Pow(5.0*ms/(256.0*eta*tau), 3.0/8.0) / (math.Pi * ms)
	for i := 0; i < 8; i++ {
		got, err := TimeToCoalescence(f, m1, m2, s1z, s2z)
		if err != nil {
			return 0, err
		}
		f *= math.Pow(got/tau, 3.0/8.0)
	}
	return f, nil
}

// MergerFrequency estimates the GW frequency at merger as twice the
// orbital frequency of the innermost stable circular orbit.
func MergerFrequency(m1, m2 float64) float64 {
	ms := (m1 + m2) * SolarMassSeconds
	return 1.0 / (math.Pow(6, 1.5) * math.Pi * ms)
}

// ProjectMode projects a (2,2)-mode amplitude/phase pair onto the plus and
// cross polarizations for an observer at the given inclination and
// reference phase:
//
//	h+ = A·(1+cos^2 i)/2 · cos(phi + 2·phi0)
//	hx = A·cos i · sin(phi + 2·phi0)
func ProjectMode(amp, phase []float64, inclination, refPhase float64) (hp, hc []float64) {
	ci := math.Cos(inclination)
	plusFac := 0.5 * (1 + ci*ci)

	hp = make([]float64, len(amp))
	hc = make([]float64, len(amp))
	for i := range amp {
		ph := phase[i] + 2*refPhase
		hp[i] = amp[i] * plusFac * math.Cos(ph)
		hc[i] = amp[i] * ci * math.Sin(ph)
	}
	return hp, hc
}
