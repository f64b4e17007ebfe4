// Package sample draws physical-parameter vectors for dataset generation.
// Each parameter is a tagged variant, fixed or uniform range, resolved once
// at builder setup so the generation loop never re-inspects argument kinds.
package sample

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrBadRange indicates an inverted range.
var ErrBadRange = errors.New("sample: range low > high")

// Param is either a fixed value or a uniform range. The zero value is
// Fixed(0).
type Param struct {
	lo, hi float64
	ranged bool
}

// Fixed returns a parameter pinned to v; a degenerate range of one point.
func Fixed(v float64) Param { return Param{lo: v, hi: v} }

// Range returns a parameter drawn uniformly from [lo, hi].
func Range(lo, hi float64) (Param, error) {
	if lo > hi {
		return Param{}, fmt.Errorf("%w: [%g, %g]", ErrBadRange, lo, hi)
	}
	if lo == hi {
		return Fixed(lo), nil
	}
	return Param{lo: lo, hi: hi, ranged: true}, nil
}

// Bounds reports the parameter's extent; equal values for Fixed.
func (p Param) Bounds() (lo, hi float64) { return p.lo, p.hi }

// IsFixed reports whether the parameter never varies.
func (p Param) IsFixed() bool { return !p.ranged }

// draw resolves the parameter against a random source.
func (p Param) draw(src rand.Source) float64 {
	if !p.ranged {
		return p.lo
	}
	u := distuv.Uniform{Min: p.lo, Max: p.hi, Src: src}
	return u.Rand()
}

// Space is the sampled parameter space of one dataset: mass ratio and the
// two aligned spins. Theta vectors are laid out [q, s1z, s2z], the order
// persisted in dataset rows.
type Space struct {
	MassRatio Param
	Spin1     Param
	Spin2     Param

	src rand.Source
}

// ThetaDim is the width of a theta vector.
const ThetaDim = 3

// NewSpace builds a parameter space with a deterministic seed.
func NewSpace(q, s1, s2 Param, seed uint64) *Space {
	return &Space{
		MassRatio: q,
		Spin1:     s1,
		Spin2:     s2,
		src:       rand.NewSource(seed),
	}
}

// Draw samples one theta vector.
func (s *Space) Draw() [ThetaDim]float64 {
	return [ThetaDim]float64{
		s.MassRatio.draw(s.src),
		s.Spin1.draw(s.src),
		s.Spin2.draw(s.src),
	}
}

// Masses converts a mass ratio q >= 1 into component masses under the
// fixed-total-mass convention m1+m2 = total.
func Masses(q, total float64) (m1, m2 float64) {
	m2 = total / (1 + q)
	m1 = total - m2
	return m1, m2
}
