package datafile

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func testHeader(nGrid int) Header {
	return Header{
		NGrid:  nGrid,
		Domain: "time",
		Step:   1.0 / 512.0,
		TCoal:  4.0,
		Ranges: []NamedRange{
			{Name: "q", Lo: 1, Hi: 10},
			{Name: "s1", Lo: -0.8, Hi: 0.8},
			{Name: "s2", Lo: -0.8, Hi: 0.8},
		},
	}
}

func testGrid(n int) []float64 {
	g := make([]float64, n)
	for i := range g {
		g[i] = -4.0 + 4.0*float64(i)/float64(n-1)
	}
	return g
}

func synthRow(seed float64, n int) (theta, amp, ph []float64) {
	theta = []float64{1 + seed, seed / 10, -seed / 10}
	amp = make([]float64, n)
	ph = make([]float64, n)
	for i := range amp {
		amp[i] = seed + float64(i)*0.25
		ph[i] = -seed * float64(i)
	}
	return theta, amp, ph
}

func writeDataset(t *testing.T, path string, nGrid, rows int) {
	t.Helper()
	w, err := OpenWriter(path, testHeader(nGrid), testGrid(nGrid))
	require.NoError(t, err)
	for r := 0; r < rows; r++ {
		theta, amp, ph := synthRow(float64(r+1), nGrid)
		require.NoError(t, w.WriteRow(theta, amp, ph))
	}
	require.NoError(t, w.Close())
}

func TestHeaderRoundTrip(t *testing.T) {
	hdr := testHeader(64)
	parsed, err := parseHeader(hdr.encode())
	require.NoError(t, err)
	assert.Equal(t, hdr.NGrid, parsed.NGrid)
	assert.Equal(t, hdr.Domain, parsed.Domain)
	assert.Equal(t, hdr.Step, parsed.Step)
	assert.Equal(t, hdr.TCoal, parsed.TCoal)
	assert.Equal(t, hdr.Ranges, parsed.Ranges)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.dat")
	const nGrid, rows = 32, 5
	writeDataset(t, path, nGrid, rows)

	ds, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, rows, ds.Rows())
	assert.Equal(t, testGrid(nGrid), ds.Grid)

	for r := 0; r < rows; r++ {
		theta, amp, ph := synthRow(float64(r+1), nGrid)
		assert.Equal(t, theta, ds.Theta[r], "row %d theta", r)
		assert.Equal(t, amp, ds.Amp[r], "row %d amp", r)
		assert.Equal(t, ph, ds.Ph[r], "row %d ph", r)
	}
}

func TestLoad_MaxRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.dat")
	writeDataset(t, path, 16, 8)

	ds, err := Load(path, LoadOptions{MaxRows: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
	theta, _, _ := synthRow(1, 16)
	assert.Equal(t, theta, ds.Theta[0]) // original order preserved
}

func TestLoad_ShuffleIsPermutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.dat")
	const rows = 20
	writeDataset(t, path, 8, rows)

	plain, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	shuffled, err := Load(path, LoadOptions{Shuffle: true, Seed: 99})
	require.NoError(t, err)
	require.Equal(t, rows, shuffled.Rows())

	// same multiset of theta rows
	key := func(th []float64) float64 { return th[0] }
	var a, b []float64
	for r := 0; r < rows; r++ {
		a = append(a, key(plain.Theta[r]))
		b = append(b, key(shuffled.Theta[r]))
	}
	sort.Float64s(a)
	sort.Float64s(b)
	assert.Equal(t, a, b)

	// rows stay internally consistent after permutation
	for r := 0; r < rows; r++ {
		seed := shuffled.Theta[r][0] - 1
		_, amp, ph := synthRow(seed, 8)
		assert.Equal(t, amp, shuffled.Amp[r])
		assert.Equal(t, ph, shuffled.Ph[r])
	}
}

func TestLoad_Subsample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.dat")
	writeDataset(t, path, 33, 2)

	ds, err := Load(path, LoadOptions{SubsampleTo: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Header.NGrid)
	assert.Len(t, ds.Grid, 5)
	assert.Len(t, ds.Amp[0], 5)
	assert.Len(t, ds.Ph[0], 5)

	// endpoints survive uniform index selection
	full := testGrid(33)
	assert.Equal(t, full[0], ds.Grid[0])
	assert.Equal(t, full[32], ds.Grid[4])

	// Step keeps describing the stored file's generation step
	assert.Equal(t, testHeader(33).Step, ds.Header.Step)

	// request beyond the stored grid caps silently
	capped, err := Load(path, LoadOptions{SubsampleTo: 1000})
	require.NoError(t, err)
	assert.Equal(t, 33, capped.Header.NGrid)
}

func TestOpenWriter_AppendValidatesGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.dat")
	writeDataset(t, path, 16, 2)

	// append with a matching grid succeeds and extends the file
	w, err := OpenWriter(path, testHeader(16), testGrid(16))
	require.NoError(t, err)
	theta, amp, ph := synthRow(9, 16)
	require.NoError(t, w.WriteRow(theta, amp, ph))
	require.NoError(t, w.Close())

	ds, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())

	// mismatched grid is refused outright
	_, err = OpenWriter(path, testHeader(8), testGrid(8))
	assert.ErrorIs(t, err, ErrGridMismatch)
}

func TestWriteRow_Validation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.dat")
	w, err := OpenWriter(path, testHeader(8), testGrid(8))
	require.NoError(t, err)
	defer w.Close()

	_, amp, ph := synthRow(1, 8)
	err = w.WriteRow([]float64{1}, amp, ph)
	assert.ErrorIs(t, err, ErrBadRow)

	theta, _, _ := synthRow(1, 8)
	err = w.WriteRow(theta, amp[:4], ph)
	assert.ErrorIs(t, err, ErrGridMismatch)
}

func TestOpenWriter_BadPathFailsFast(t *testing.T) {
	_, err := OpenWriter(filepath.Join("no", "such", "dir", "x.dat"), testHeader(4), testGrid(4))
	assert.Error(t, err)
}

func TestLoad_BadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.dat")
	require.NoError(t, writeFile(path, "1 2 3\n"))
	_, err := Load(path, LoadOptions{})
	assert.ErrorIs(t, err, ErrBadHeader)
}
