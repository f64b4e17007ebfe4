package datafile

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// LoadOptions controls partial, shuffled and subsampled reloads.
type LoadOptions struct {
	// MaxRows caps the number of data rows loaded (0 = all). Rows beyond
	// the cap are never parsed.
	MaxRows int

	// Shuffle applies one random permutation identically across
	// theta/amplitude/phase (and is applied after MaxRows).
	Shuffle bool

	// Seed drives the shuffle permutation.
	Seed uint64

	// SubsampleTo reduces the grid to this many columns by uniform index
	// selection (0 = keep all). Requests beyond the stored grid warn and
	// cap silently.
	SubsampleTo int
}

// Dataset is a fully loaded dataset: the shared domain grid plus one
// theta/amplitude/phase triple per row.
type Dataset struct {
	Header Header
	Grid   []float64
	Theta  [][]float64
	Amp    [][]float64
	Ph     [][]float64
}

// Rows returns the number of loaded waveforms.
func (d *Dataset) Rows() int { return len(d.Theta) }

// Load reads a dataset file back into memory, honoring the options.
func Load(path string, opts LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datafile: open: %w", err)
	}
	defer f.Close()

	sc := newScanner(f)
	hdr, domainGrid, err := readHeaderAndGrid(sc)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Header: hdr, Grid: domainGrid}
	width := hdr.RowWidth()
	for sc.Scan() {
		if opts.MaxRows > 0 && ds.Rows() >= opts.MaxRows {
			break
		}
		line := sc.Text()
		if len(line) == 0 {
			continue
		}
		row, err := parseRow(line, width)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", ds.Rows()+1, err)
		}
		ds.Theta = append(ds.Theta, row[:ThetaDim])
		ds.Amp = append(ds.Amp, row[ThetaDim:ThetaDim+hdr.NGrid])
		ds.Ph = append(ds.Ph, row[ThetaDim+hdr.NGrid:])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("datafile: read: %w", err)
	}

	if opts.Shuffle {
		ds.shuffle(opts.Seed)
	}
	if opts.SubsampleTo > 0 {
		ds.subsample(opts.SubsampleTo)
	}
	return ds, nil
}

// shuffle permutes rows in place, the same permutation for all three
// blocks.
func (d *Dataset) shuffle(seed uint64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(d.Rows(), func(i, j int) {
		d.Theta[i], d.Theta[j] = d.Theta[j], d.Theta[i]
		d.Amp[i], d.Amp[j] = d.Amp[j], d.Amp[i]
		d.Ph[i], d.Ph[j] = d.Ph[j], d.Ph[i]
	})
}

// subsample reduces the grid and every row to k columns by uniform index
// selection, keeping both endpoints. Header.Step still describes the
// stored file, not the reduced grid.
func (d *Dataset) subsample(k int) {
	n := d.Header.NGrid
	if k >= n {
		if k > n {
			log.Warn().Int("requested", k).Int("stored", n).
				Msg("requested grid exceeds stored grid; capping")
		}
		return
	}

	idx := make([]int, k)
	if k == 1 {
		idx[0] = 0
	} else {
		for i := range idx {
			idx[i] = i * (n - 1) / (k - 1)
		}
	}

	pick := func(row []float64) []float64 {
		out := make([]float64, k)
		for i, j := range idx {
			out[i] = row[j]
		}
		return out
	}

	d.Grid = pick(d.Grid)
	for r := range d.Amp {
		d.Amp[r] = pick(d.Amp[r])
		d.Ph[r] = pick(d.Ph[r])
	}
	d.Header.NGrid = k
}
