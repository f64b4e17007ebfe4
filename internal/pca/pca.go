// Package pca fits linear low-rank models to waveform datasets. Amplitude
// and phase rows live close to a low-dimensional manifold, so a handful of
// principal components reconstructs them to high accuracy.
package pca

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/gwforge/gwforge/internal/ioutil"
)

var (
	// ErrBadShape indicates input whose dimensions do not match the model.
	ErrBadShape = errors.New("pca: dimension mismatch")

	// ErrBadRank indicates a requested component count the data cannot
	// support.
	ErrBadRank = errors.New("pca: invalid component count")
)

// Model is a fitted principal component basis: the column means of the
// training data and the top-K right singular vectors.
type Model struct {
	// Mean is the column mean subtracted before projection, length D.
	Mean []float64 `json:"mean"`

	// Components holds K basis rows of length D.
	Components [][]float64 `json:"components"`

	// Variance is the data variance captured by each component, in
	// decreasing order.
	Variance []float64 `json:"variance"`

	// TotalVariance is the variance of the centered training data, for
	// explained-ratio bookkeeping.
	TotalVariance float64 `json:"total_variance"`
}

// K returns the number of components.
func (m *Model) K() int { return len(m.Components) }

// Dim returns the ambient dimension.
func (m *Model) Dim() int { return len(m.Mean) }

// Fit computes the top-k principal components of the rows of data via a
// thin SVD of the centered matrix.
func Fit(data [][]float64, k int) (*Model, error) {
	n := len(data)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least two rows, got %d", ErrBadShape, n)
	}
	d := len(data[0])
	if d == 0 {
		return nil, fmt.Errorf("%w: empty rows", ErrBadShape)
	}
	maxRank := n - 1
	if d < maxRank {
		maxRank = d
	}
	if k <= 0 || k > maxRank {
		return nil, fmt.Errorf("%w: k=%d with %d rows of dimension %d", ErrBadRank, k, n, d)
	}

	mean := make([]float64, d)
	for _, row := range data {
		if len(row) != d {
			return nil, fmt.Errorf("%w: ragged rows", ErrBadShape)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	x := mat.NewDense(n, d, nil)
	for i, row := range data {
		for j, v := range row {
			x.Set(i, j, v-mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errors.New("pca: svd did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	sigma := svd.Values(nil)

	comps := make([][]float64, k)
	variance := make([]float64, k)
	for i := 0; i < k; i++ {
		col := make([]float64, d)
		mat.Col(col, i, &v)
		comps[i] = col
		variance[i] = sigma[i] * sigma[i] / float64(n-1)
	}
	total := 0.0
	for _, s := range sigma {
		total += s * s / float64(n-1)
	}

	return &Model{Mean: mean, Components: comps, Variance: variance, TotalVariance: total}, nil
}

// Project maps one row onto the component basis, returning K coefficients.
func (m *Model) Project(row []float64) ([]float64, error) {
	if len(row) != m.Dim() {
		return nil, fmt.Errorf("%w: row has %d values, model dimension is %d", ErrBadShape, len(row), m.Dim())
	}
	out := make([]float64, m.K())
	for i, comp := range m.Components {
		s := 0.0
		for j, v := range row {
			s += (v - m.Mean[j]) * comp[j]
		}
		out[i] = s
	}
	return out, nil
}

// Reconstruct maps K coefficients back to the ambient space.
func (m *Model) Reconstruct(coeffs []float64) ([]float64, error) {
	if len(coeffs) != m.K() {
		return nil, fmt.Errorf("%w: %d coefficients for a rank-%d model", ErrBadShape, len(coeffs), m.K())
	}
	out := append([]float64(nil), m.Mean...)
	for i, c := range coeffs {
		for j, v := range m.Components[i] {
			out[j] += c * v
		}
	}
	return out, nil
}

// ProjectAll projects every row of data.
func (m *Model) ProjectAll(data [][]float64) ([][]float64, error) {
	out := make([][]float64, len(data))
	for i, row := range data {
		c, err := m.Project(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// ExplainedRatio returns the fraction of total variance each component
// captures.
func (m *Model) ExplainedRatio() []float64 {
	out := make([]float64, m.K())
	if m.TotalVariance == 0 {
		return out
	}
	for i, v := range m.Variance {
		out[i] = v / m.TotalVariance
	}
	return out
}

// Save persists the model as JSON, atomically.
func (m *Model) Save(path string) error {
	if err := ioutil.WriteJSONAtomic(path, m); err != nil {
		return fmt.Errorf("pca: save model: %w", err)
	}
	return nil
}

// LoadModel reads a model saved by Save.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pca: load model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("pca: decode model: %w", err)
	}
	if m.Dim() == 0 || m.K() == 0 {
		return nil, fmt.Errorf("pca: model %s is empty", path)
	}
	for _, comp := range m.Components {
		if len(comp) != m.Dim() {
			return nil, fmt.Errorf("%w: component length %d, mean length %d", ErrBadShape, len(comp), m.Dim())
		}
	}
	return &m, nil
}
