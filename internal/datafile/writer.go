package datafile

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Writer appends dataset rows to a flat-text file. Rows are built whole in
// memory and written with a single call, flushed per row, so a crash never
// leaves a partial row behind.
type Writer struct {
	f      *os.File
	header Header
	rows   int
}

// OpenWriter creates the dataset file with header and grid row, or reopens
// an existing one for append after validating that its declared grid size
// matches; a mismatched append would corrupt the tabular structure.
// I/O failures surface here, before any generation work starts.
func OpenWriter(path string, hdr Header, domainGrid []float64) (*Writer, error) {
	if len(domainGrid) != hdr.NGrid {
		return nil, fmt.Errorf("%w: grid has %d points, header declares %d",
			ErrGridMismatch, len(domainGrid), hdr.NGrid)
	}

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return openAppend(path, hdr)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("datafile: create: %w", err)
	}

	// header plus the grid row padded to full row width
	padded := make([]float64, hdr.RowWidth())
	copy(padded, domainGrid)
	if _, err := fmt.Fprintln(f, hdr.encode()); err != nil {
		f.Close()
		return nil, fmt.Errorf("datafile: write header: %w", err)
	}
	if _, err := f.Write(formatRow(padded)); err != nil {
		f.Close()
		return nil, fmt.Errorf("datafile: write grid row: %w", err)
	}

	log.Debug().Str("path", path).Int("n_grid", hdr.NGrid).Msg("dataset file created")
	return &Writer{f: f, header: hdr}, nil
}

func openAppend(path string, hdr Header) (*Writer, error) {
	rf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datafile: open for header check: %w", err)
	}
	existing, _, err := readHeaderAndGrid(newScanner(rf))
	rf.Close()
	if err != nil {
		return nil, err
	}
	if existing.NGrid != hdr.NGrid {
		return nil, fmt.Errorf("%w: file has n_grid=%d, writer has %d",
			ErrGridMismatch, existing.NGrid, hdr.NGrid)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("datafile: open append: %w", err)
	}
	log.Debug().Str("path", path).Msg("dataset file reused for append")
	return &Writer{f: f, header: existing}, nil
}

// WriteRow appends one waveform row. The amplitude and phase blocks must
// both match the declared grid size.
func (w *Writer) WriteRow(theta []float64, amp, ph []float64) error {
	if len(theta) != ThetaDim {
		return fmt.Errorf("%w: theta has %d values, want %d", ErrBadRow, len(theta), ThetaDim)
	}
	if len(amp) != w.header.NGrid || len(ph) != w.header.NGrid {
		return fmt.Errorf("%w: amp %d / ph %d vs n_grid %d",
			ErrGridMismatch, len(amp), len(ph), w.header.NGrid)
	}

	row := make([]float64, 0, w.header.RowWidth())
	row = append(row, theta...)
	row = append(row, amp...)
	row = append(row, ph...)

	if _, err := w.f.Write(formatRow(row)); err != nil {
		return fmt.Errorf("datafile: write row: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("datafile: flush row: %w", err)
	}
	w.rows++
	return nil
}

// Rows reports how many rows this writer appended (not the file total).
func (w *Writer) Rows() int { return w.rows }

// Header returns the header the writer validates rows against.
func (w *Writer) Header() Header { return w.header }

// Close releases the file handle.
func (w *Writer) Close() error { return w.f.Close() }
