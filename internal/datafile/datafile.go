// Package datafile implements the flat-text dataset format: one comment
// header line describing the grid and parameter ranges, a first data row
// holding the domain grid itself padded to full row width, then one row
// per waveform laid out theta | amplitude | phase. The format supports
// incremental append (with grid-size validation against the on-disk
// header) and shuffled/partial reload.
package datafile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrGridMismatch indicates an append whose grid size disagrees with
	// the file's declared one; appending would corrupt the table.
	ErrGridMismatch = errors.New("datafile: grid size does not match file header")

	// ErrBadHeader indicates a missing or unparseable header line.
	ErrBadHeader = errors.New("datafile: bad header")

	// ErrBadRow indicates a data row of unexpected width.
	ErrBadRow = errors.New("datafile: malformed row")
)

// ThetaDim is the number of parameter columns in every row.
const ThetaDim = 3

// NamedRange documents one sampled parameter range in the header.
type NamedRange struct {
	Name   string
	Lo, Hi float64
}

// Header describes the dataset: grid size, domain kind and step, the
// time-to-coalescence for time-domain sets, and the parameter ranges the
// rows were drawn from.
type Header struct {
	NGrid  int
	Domain string // "time" or "frequency"

	// Step is the generation step of the stored file (the raw sampling
	// step in the time domain, the fine internal frequency step in the
	// frequency domain). It is not the spacing of the possibly non-uniform
	// domain grid, and subsampled loads leave it untouched.
	Step float64

	TCoal  float64
	Ranges []NamedRange
}

// RowWidth is the column count of every data row: theta plus amplitude
// and phase blocks.
func (h Header) RowWidth() int { return ThetaDim + 2*h.NGrid }

// encode renders the single leading comment line.
func (h Header) encode() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# n_grid=%d domain=%s step=%.18e t_coal=%.18e", h.NGrid, h.Domain, h.Step, h.TCoal)
	for _, r := range h.Ranges {
		fmt.Fprintf(&b, " %s=[%g,%g]", r.Name, r.Lo, r.Hi)
	}
	return b.String()
}

// parseHeader reads the key=value tokens of a header comment line.
func parseHeader(line string) (Header, error) {
	if !strings.HasPrefix(line, "#") {
		return Header{}, fmt.Errorf("%w: missing comment marker", ErrBadHeader)
	}
	h := Header{}
	for _, tok := range strings.Fields(strings.TrimPrefix(line, "#")) {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		switch key {
		case "n_grid":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Header{}, fmt.Errorf("%w: n_grid %q", ErrBadHeader, val)
			}
			h.NGrid = n
		case "domain":
			h.Domain = val
		case "step":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Header{}, fmt.Errorf("%w: step %q", ErrBadHeader, val)
			}
			h.Step = f
		case "t_coal":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Header{}, fmt.Errorf("%w: t_coal %q", ErrBadHeader, val)
			}
			h.TCoal = f
		default:
			lo, hi, err := parseRange(val)
			if err == nil {
				h.Ranges = append(h.Ranges, NamedRange{Name: key, Lo: lo, Hi: hi})
			}
		}
	}
	if h.NGrid <= 0 {
		return Header{}, fmt.Errorf("%w: n_grid missing", ErrBadHeader)
	}
	return h, nil
}

func parseRange(val string) (lo, hi float64, err error) {
	val = strings.TrimPrefix(val, "[")
	val = strings.TrimSuffix(val, "]")
	a, b, ok := strings.Cut(val, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%w: range %q", ErrBadHeader, val)
	}
	if lo, err = strconv.ParseFloat(a, 64); err != nil {
		return 0, 0, err
	}
	if hi, err = strconv.ParseFloat(b, 64); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// formatRow renders one full-width row; every value as %.18e so the
// round-trip is exact to double precision.
func formatRow(values []float64) []byte {
	var b bytes.Buffer
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.18e", v)
	}
	b.WriteByte('\n')
	return b.Bytes()
}

func parseRow(line string, width int) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) != width {
		return nil, fmt.Errorf("%w: %d columns, want %d", ErrBadRow, len(fields), width)
	}
	out := make([]float64, width)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %v", ErrBadRow, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// readHeaderAndGrid consumes the first two lines of an open dataset file.
func readHeaderAndGrid(sc *bufio.Scanner) (Header, []float64, error) {
	if !sc.Scan() {
		return Header{}, nil, fmt.Errorf("%w: empty file", ErrBadHeader)
	}
	hdr, err := parseHeader(sc.Text())
	if err != nil {
		return Header{}, nil, err
	}
	if !sc.Scan() {
		return Header{}, nil, fmt.Errorf("%w: missing grid row", ErrBadHeader)
	}
	padded, err := parseRow(sc.Text(), hdr.RowWidth())
	if err != nil {
		return Header{}, nil, fmt.Errorf("grid row: %w", err)
	}
	return hdr, padded[:hdr.NGrid], nil
}

// newScanner builds a scanner sized for wide numeric rows.
func newScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<26)
	return sc
}
