// Package dataset orchestrates waveform dataset generation: drawing
// parameters, invoking the generator backend, validating and resampling
// each waveform onto the shared domain grid, and appending rows to a sink.
package dataset

import (
	"fmt"

	"github.com/gwforge/gwforge/internal/datafile"
)

// Sink receives finished rows. The builder never knows whether rows go to
// memory or to disk; the caller picks the sink once.
type Sink interface {
	// Append stores one (theta, amplitude, phase) triple. Implementations
	// must either store the whole row or nothing.
	Append(theta, amp, ph []float64) error

	// Rows reports how many rows were appended.
	Rows() int

	// Close releases any underlying resources.
	Close() error
}

// InMemorySink accumulates rows in slices, for callers that want arrays
// back instead of a file.
type InMemorySink struct {
	Theta [][]float64
	Amp   [][]float64
	Ph    [][]float64
}

// NewInMemorySink returns an empty accumulator.
func NewInMemorySink() *InMemorySink { return &InMemorySink{} }

// Append copies the row, so the builder may reuse its buffers.
func (s *InMemorySink) Append(theta, amp, ph []float64) error {
	s.Theta = append(s.Theta, append([]float64(nil), theta...))
	s.Amp = append(s.Amp, append([]float64(nil), amp...))
	s.Ph = append(s.Ph, append([]float64(nil), ph...))
	return nil
}

// Rows reports the number of accumulated rows.
func (s *InMemorySink) Rows() int { return len(s.Theta) }

// Close is a no-op for the in-memory sink.
func (s *InMemorySink) Close() error { return nil }

// StreamingSink appends rows to a dataset file as they are produced, one
// flushed write per row.
type StreamingSink struct {
	w *datafile.Writer
}

// NewStreamingSink creates or reopens the dataset file; I/O problems and
// grid mismatches surface here, before generation begins.
func NewStreamingSink(path string, hdr datafile.Header, domainGrid []float64) (*StreamingSink, error) {
	w, err := datafile.OpenWriter(path, hdr, domainGrid)
	if err != nil {
		return nil, fmt.Errorf("dataset: open sink: %w", err)
	}
	return &StreamingSink{w: w}, nil
}

// Append writes one row through to the file.
func (s *StreamingSink) Append(theta, amp, ph []float64) error {
	return s.w.WriteRow(theta, amp, ph)
}

// Rows reports rows written by this sink.
func (s *StreamingSink) Rows() int { return s.w.Rows() }

// Close closes the underlying file.
func (s *StreamingSink) Close() error { return s.w.Close() }
