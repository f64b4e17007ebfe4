package match

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Mismatch computes the normalized dissimilarity between two waveforms:
//
//	F = 1 − <h1,h2> / sqrt(<h1,h1>·<h2,h2>)
//
// using three Scalar evaluations. A vanishing self-term reports ErrZeroNorm
// instead of silently producing NaN: a zero-norm waveform is a degenerate
// draw the caller must skip.
func Mismatch(amp1, ph1, amp2, ph2 []float64, df float64, psd []float64) (float64, error) {
	cross, err := Scalar(amp1, ph1, amp2, ph2, df, psd)
	if err != nil {
		return 0, err
	}
	n1, err := Scalar(amp1, ph1, amp1, ph1, df, psd)
	if err != nil {
		return 0, err
	}
	n2, err := Scalar(amp2, ph2, amp2, ph2, df, psd)
	if err != nil {
		return 0, err
	}
	norm := math.Sqrt(n1 * n2)
	if norm == 0 || math.IsNaN(norm) {
		return 0, fmt.Errorf("%w: norms %g, %g", ErrZeroNorm, n1, n2)
	}
	return 1 - cross/norm, nil
}

// OptimalMismatch aligns h2 onto h1 by a global phase rotation and returns
// the resulting mismatch together with the optimal rotation angle.
//
// The alignment is closed form: with c = Σ conj(h1)·h2, the overlap after
// rotating h2 by φ is Re[c·exp(iφ)]/norm, maximised exactly at
// φ = −arg(c) with maximum |c|/norm. phi is reported so that
// h2·exp(i·phi) best matches h1.
func OptimalMismatch(h1, h2 []complex128) (mismatch, phi float64, err error) {
	overlap, phi, err := OptimalOverlap(h1, h2)
	if err != nil {
		return 0, 0, err
	}
	return 1 - overlap, phi, nil
}

// OptimalOverlap returns the normalized overlap |<h1,h2>| / sqrt(<h1,h1><h2,h2>)
// achieved at the optimal phase rotation, and the rotation itself.
func OptimalOverlap(h1, h2 []complex128) (overlap, phi float64, err error) {
	if len(h1) != len(h2) {
		return 0, 0, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, len(h1), len(h2))
	}

	var c complex128
	var n1, n2 float64
	for i := range h1 {
		c += cmplx.Conj(h1[i]) * h2[i]
		n1 += real(h1[i])*real(h1[i]) + imag(h1[i])*imag(h1[i])
		n2 += real(h2[i])*real(h2[i]) + imag(h2[i])*imag(h2[i])
	}
	norm := math.Sqrt(n1 * n2)
	if norm == 0 || math.IsNaN(norm) {
		return 0, 0, fmt.Errorf("%w: norms %g, %g", ErrZeroNorm, n1, n2)
	}
	return cmplx.Abs(c) / norm, -cmplx.Phase(c), nil
}

// OptimalMismatchBatch applies OptimalMismatch row-wise.
func OptimalMismatchBatch(h1, h2 [][]complex128) (mismatches, phis []float64, err error) {
	if len(h1) != len(h2) {
		return nil, nil, fmt.Errorf("%w: batch sizes %d vs %d", ErrShapeMismatch, len(h1), len(h2))
	}
	mismatches = make([]float64, len(h1))
	phis = make([]float64, len(h1))
	for r := range h1 {
		m, p, err := OptimalMismatch(h1[r], h2[r])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", r, err)
		}
		mismatches[r], phis[r] = m, p
	}
	return mismatches, phis, nil
}
