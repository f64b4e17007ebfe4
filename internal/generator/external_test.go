package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
}

func TestNewExternal_Validation(t *testing.T) {
	_, err := NewExternal(ExternalConfig{})
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestExternal_TDContract(t *testing.T) {
	requireShell(t)

	// a fake simulator that ignores stdin and answers a fixed waveform
	ext, err := NewExternal(ExternalConfig{
		Command: []string{"sh", "-c", `echo '{"x":[-0.2,-0.1,0],"hp":[0.1,0.5,1.0],"hc":[0.0,0.2,0.3]}'`},
		Timeout: 10 * time.Second,
	})
	require.NoError(t, err)

	wf, err := ext.GenerateTD(context.Background(), tdParams())
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.2, -0.1, 0}, wf.Times)
	assert.Equal(t, []float64{0.1, 0.5, 1.0}, wf.HPlus)
	assert.Equal(t, []float64{0.0, 0.2, 0.3}, wf.HCross)
}

func TestExternal_FDContractAndSimulatorError(t *testing.T) {
	requireShell(t)

	ext, err := NewExternal(ExternalConfig{
		Command: []string{"sh", "-c", `echo '{"x":[10,20],"amp":[1,2],"ph":[0,1]}'`},
	})
	require.NoError(t, err)

	wf, err := ext.GenerateFD(context.Background(), tdParams())
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, wf.Freqs)

	rejecting, err := NewExternal(ExternalConfig{
		Command: []string{"sh", "-c", `echo '{"error":"spins out of range"}'`},
	})
	require.NoError(t, err)

	_, err = rejecting.GenerateTD(context.Background(), tdParams())
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestExternal_RequestCarriesConfiguredApproximant(t *testing.T) {
	requireShell(t)

	// a fake simulator that records its stdin before answering
	capture := filepath.Join(t.TempDir(), "request.json")
	ext, err := NewExternal(ExternalConfig{
		Command: []string{"sh", "-c",
			fmt.Sprintf(`cat > %s; echo '{"x":[-0.1,0],"hp":[0.5,1.0],"hc":[0.2,0.3]}'`, capture)},
		Approximant: "SEOBNRv4",
		Timeout:     10 * time.Second,
	})
	require.NoError(t, err)

	_, err = ext.GenerateTD(context.Background(), tdParams())
	require.NoError(t, err)

	raw, err := os.ReadFile(capture)
	require.NoError(t, err)
	var req map[string]any
	require.NoError(t, json.Unmarshal(raw, &req))
	assert.Equal(t, "SEOBNRv4", req["approximant"])
}

func TestExternal_ParamsApproximantOverridesDefault(t *testing.T) {
	ext, err := NewExternal(ExternalConfig{
		Command:     []string{"simulator"},
		Approximant: "SEOBNRv4",
	})
	require.NoError(t, err)

	p := ext.withDefaults(Params{})
	assert.Equal(t, "SEOBNRv4", p.Approximant)

	p = ext.withDefaults(Params{Approximant: "IMRPhenomD"})
	assert.Equal(t, "IMRPhenomD", p.Approximant)
}

func TestExternal_MismatchedSampleCounts(t *testing.T) {
	requireShell(t)

	ext, err := NewExternal(ExternalConfig{
		Command: []string{"sh", "-c", `echo '{"x":[1,2,3],"hp":[1],"hc":[1]}'`},
	})
	require.NoError(t, err)

	_, err = ext.GenerateTD(context.Background(), tdParams())
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestExternal_BreakerTripsOnRepeatedFailure(t *testing.T) {
	requireShell(t)

	ext, err := NewExternal(ExternalConfig{
		Command:   []string{"sh", "-c", "exit 3"},
		TripAfter: 2,
		Cooldown:  time.Minute,
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ext.GenerateTD(ctx, tdParams())
	assert.ErrorIs(t, err, ErrGeneration)
	_, err = ext.GenerateTD(ctx, tdParams())
	assert.ErrorIs(t, err, ErrGeneration)

	// third call must be rejected by the open circuit, not run the command
	_, err = ext.GenerateTD(ctx, tdParams())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
