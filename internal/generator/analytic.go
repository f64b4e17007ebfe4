package generator

import (
	"context"
	"fmt"
	"math"
)

// Analytic is the in-process backend: a closed-form TaylorT3-flavoured
// inspiral matched to a phenomenological merger-ringdown in the time
// domain, and the stationary-phase TaylorF2 approximant in the frequency
// domain. It exists so datasets can be generated without an external
// simulator installed; its waveforms are smooth, peak at t=0 and respond
// to masses and aligned spins the way the real approximants do.
type Analytic struct {
	cfg Config
}

// NewAnalytic builds the in-process backend with the given configuration.
func NewAnalytic(cfg Config) *Analytic {
	if cfg.RingdownCycles <= 0 {
		cfg.RingdownCycles = DefaultConfig().RingdownCycles
	}
	return &Analytic{cfg: cfg}
}

// Truncated TaylorT3 phasing coefficients (1PN and the leading aligned
// spin term) and the ringdown parameters of the fundamental l=m=2 mode of
// a moderately spinning remnant, in units of total mass.
const (
	t3Coeff1PN  = 3715.0 / 8064.0
	t3CoeffSpin = 113.0 / 256.0

	attachBeforeMerger = 100.0 // attach point, in total masses before t=0
	minInspiralMasses  = 250.0 // shortest generable inspiral
	ringdownOmega      = 0.55  // M·omega of the ringdown
	ringdownDamping    = 12.0  // damping time in total masses
)

// GenerateTD produces the plus/cross polarizations from the requested
// starting frequency (or time before merger) through ringdown, sampled at
// p.TimeStep, with the amplitude peak at t=0.
func (g *Analytic) GenerateTD(ctx context.Context, p Params) (TDWaveform, error) {
	if err := p.Validate(); err != nil {
		return TDWaveform{}, err
	}
	if p.TimeStep <= 0 {
		return TDWaveform{}, fmt.Errorf("%w: time step must be positive (%g)", ErrBadParams, p.TimeStep)
	}

	tau := p.TimeToCoal
	if tau <= 0 {
		if p.FMin <= 0 {
			return TDWaveform{}, fmt.Errorf("%w: need FMin or TimeToCoal", ErrBadParams)
		}
		var err error
		tau, err = TimeToCoalescence(p.FMin, p.Mass1, p.Mass2, p.Spin1z, p.Spin2z)
		if err != nil {
			return TDWaveform{}, err
		}
	}

	eta := p.SymmetricMassRatio()
	chi := p.EffectiveSpin()
	ms := p.TotalMass() * SolarMassSeconds
	ampScale := 4 * eta * AmpPrefactor * p.TotalMass() / p.Distance

	tAttach := -attachBeforeMerger * ms
	if tau < minInspiralMasses*ms {
		return TDWaveform{}, fmt.Errorf("%w: inspiral of %.3gs too short for M=%.3g", ErrGeneration, tau, p.TotalMass())
	}

	tauRD := ringdownDamping * ms
	omegaRD := ringdownOmega / ms
	tEnd := g.cfg.RingdownCycles * tauRD

	dt := p.TimeStep
	n := int((tau+tEnd)/dt) + 1
	if n < 2 {
		return TDWaveform{}, fmt.Errorf("%w: grid of %d samples", ErrGeneration, n)
	}

	times := make([]float64, n)
	amp := make([]float64, n)
	phase := make([]float64, n)

	// Inspiral phasing from the closed form; once past the attach point the
	// GW frequency ramps into the ringdown value, the phase is accumulated
	// sample by sample, and the amplitude keeps following the v^2 law of
	// the instantaneous frequency, so everything stays continuous and the
	// amplitude peaks exactly at t=0 before the ringdown decay.
	var phiAtt, omegaAtt float64

	for i := 0; i < n; i++ {
		t := -tau + float64(i)*dt
		times[i] = t

		if t <= tAttach {
			theta := eta * (-t) / (5 * ms)
			t18 := math.Pow(theta, -0.125) // theta^(-1/8)
			phiOrb := -math.Pow(theta, 0.625) / eta *
				(1 + t3Coeff1PN*t18*t18 + t3CoeffSpin*chi*t18*t18*t18)
			omegaOrb := math.Pow(theta, -0.375) / (8 * ms) *
				(1 + t3Coeff1PN*t18*t18 + t3CoeffSpin*chi*t18*t18*t18)
			v := math.Cbrt(ms * omegaOrb)

			phase[i] = 2 * phiOrb
			amp[i] = ampScale * v * v

			phiAtt, omegaAtt = phase[i], 2*omegaOrb
		} else {
			// GW frequency ramp: omegaAtt at attach -> omegaRD at merger
			var omega float64
			if t < 0 {
				frac := (t - tAttach) / (0 - tAttach)
				omega = omegaAtt + (omegaRD-omegaAtt)*frac
			} else {
				omega = omegaRD
			}
			phiAtt += omega * dt
			phase[i] = phiAtt

			v := math.Cbrt(ms * omega / 2)
			a := ampScale * v * v
			if t > 0 {
				a /= math.Cosh(t / tauRD)
			}
			amp[i] = a
		}

		if i%4096 == 0 && ctx.Err() != nil {
			return TDWaveform{}, ctx.Err()
		}
	}

	hp, hc := ProjectMode(amp, phase, p.Inclination, p.RefPhase)
	return TDWaveform{Times: times, HPlus: hp, HCross: hc}, nil
}

// f2SpinBeta is the leading spin-orbit coefficient of the TaylorF2 phase.
const f2SpinBeta = 113.0 / 12.0

// GenerateFD produces the stationary-phase strain amplitude and phase over
// [p.FMin, p.FMax] at p.FreqStep, merger at t=0.
func (g *Analytic) GenerateFD(ctx context.Context, p Params) (FDWaveform, error) {
	if err := p.Validate(); err != nil {
		return FDWaveform{}, err
	}
	if p.FMin <= 0 || p.FMax <= p.FMin || p.FreqStep <= 0 {
		return FDWaveform{}, fmt.Errorf("%w: bad frequency band [%g, %g] step %g",
			ErrBadParams, p.FMin, p.FMax, p.FreqStep)
	}

	eta := p.SymmetricMassRatio()
	chi := p.EffectiveSpin()
	ms := p.TotalMass() * SolarMassSeconds
	mcs := p.ChirpMass() * SolarMassSeconds
	beta := f2SpinBeta * chi

	// sqrt(5/24)/pi^(2/3) · c/D · (G·Mc/c^3)^(5/6)
	distM := p.Distance * MpcMeters
	a0 := math.Sqrt(5.0/24.0) / math.Pow(math.Pi, 2.0/3.0) *
		SpeedOfLight / distM * math.Pow(mcs, 5.0/6.0)

	n := int((p.FMax-p.FMin)/p.FreqStep) + 1
	freqs := make([]float64, n)
	amp := make([]float64, n)
	phase := make([]float64, n)

	for i := 0; i < n; i++ {
		f := p.FMin + float64(i)*p.FreqStep
		v := math.Cbrt(math.Pi * ms * f)
		v2 := v * v
		v5 := v2 * v2 * v

		freqs[i] = f
		amp[i] = a0 * math.Pow(f, -7.0/6.0)
		phase[i] = -2*p.RefPhase - math.Pi/4 +
			3.0/(128.0*eta*v5)*(1+(3715.0/756.0+55.0*eta/9.0)*v2+(4*beta-16*math.Pi)*v2*v)

		if i%4096 == 0 && ctx.Err() != nil {
			return FDWaveform{}, ctx.Err()
		}
	}

	return FDWaveform{Freqs: freqs, Amp: amp, Phase: phase}, nil
}
