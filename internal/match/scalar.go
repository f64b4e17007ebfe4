// Package match implements the noise-weighted scalar product between
// frequency-domain waveforms and the mismatch/overlap measures built on
// top of it, including the closed-form optimal phase alignment.
package match

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShapeMismatch indicates input arrays of incompatible lengths.
	ErrShapeMismatch = errors.New("match: input shapes differ")

	// ErrPSDShape indicates a PSD whose length does not match the waveforms.
	ErrPSDShape = errors.New("match: psd length does not match waveform")

	// ErrZeroNorm indicates a degenerate waveform with vanishing self
	// scalar product; mismatch is undefined for it.
	ErrZeroNorm = errors.New("match: zero-norm waveform")
)

// Scalar computes the one-sided scalar product between two waveforms given
// as amplitude/phase arrays over a common frequency grid with step df:
//
//	4 · Re[ Σ amp1·amp2·exp(i(ph2−ph1)) / PSD ] · df
//
// The first waveform is the conjugated one. A nil psd means uniform
// weighting. All arrays must share one length.
func Scalar(amp1, ph1, amp2, ph2 []float64, df float64, psd []float64) (float64, error) {
	n := len(amp1)
	if len(ph1) != n || len(amp2) != n || len(ph2) != n {
		return 0, fmt.Errorf("%w: %d/%d/%d/%d", ErrShapeMismatch, len(amp1), len(ph1), len(amp2), len(ph2))
	}
	if psd != nil && len(psd) != n {
		return 0, fmt.Errorf("%w: psd %d vs waveform %d", ErrPSDShape, len(psd), n)
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		term := amp1[i] * amp2[i] * math.Cos(ph2[i]-ph1[i])
		if psd != nil {
			term /= psd[i]
		}
		sum += term
	}
	return 4 * sum * df, nil
}

// ScalarBatch applies Scalar row-wise over two batches of waveforms. All
// rows must share one length, and the two batches one row count.
func ScalarBatch(amp1, ph1, amp2, ph2 [][]float64, df float64, psd []float64) ([]float64, error) {
	rows := len(amp1)
	if len(ph1) != rows || len(amp2) != rows || len(ph2) != rows {
		return nil, fmt.Errorf("%w: batch sizes %d/%d/%d/%d", ErrShapeMismatch, len(amp1), len(ph1), len(amp2), len(ph2))
	}
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		s, err := Scalar(amp1[r], ph1[r], amp2[r], ph2[r], df, psd)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r, err)
		}
		out[r] = s
	}
	return out, nil
}
