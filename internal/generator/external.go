package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrBackendUnavailable indicates the external simulator is tripped open
// and draws should be skipped until it recovers.
var ErrBackendUnavailable = errors.New("generator: external backend unavailable")

// ExternalConfig configures the external-command backend.
type ExternalConfig struct {
	// Command is the simulator executable plus fixed arguments.
	Command []string

	// Approximant is the default model identifier stamped on requests
	// whose Params carry none of their own.
	Approximant string

	// Timeout bounds a single simulator invocation.
	Timeout time.Duration

	// MaxRate caps process spawns per second (0 = unlimited).
	MaxRate float64

	// TripAfter consecutive failures open the circuit.
	TripAfter uint32

	// Cooldown is how long the circuit stays open before probing again.
	Cooldown time.Duration
}

// External shells out to a waveform simulator speaking a line-oriented JSON
// contract: one request object on stdin, one response object on stdout.
// The simulator is an opaque collaborator; anything honoring the contract
// is substitutable. Invocations run behind a circuit breaker and a rate
// limiter so a failing or wedged simulator is not hammered.
type External struct {
	cfg     ExternalConfig
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewExternal builds the external backend. Command must be non-empty.
func NewExternal(cfg ExternalConfig) (*External, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("%w: empty simulator command", ErrBadParams)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.MaxRate > 0 {
		limit = rate.Limit(cfg.MaxRate)
	}

	settings := gobreaker.Settings{
		Name:    "waveform-simulator",
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("simulator circuit state changed")
		},
	}

	return &External{
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// simRequest is the wire request for one waveform.
type simRequest struct {
	Domain      string  `json:"domain"` // "td" or "fd"
	Mass1       float64 `json:"mass1"`
	Mass2       float64 `json:"mass2"`
	Spin1z      float64 `json:"spin1z"`
	Spin2z      float64 `json:"spin2z"`
	Distance    float64 `json:"distance"`
	Inclination float64 `json:"inclination"`
	RefPhase    float64 `json:"ref_phase"`
	TimeStep    float64 `json:"time_step,omitempty"`
	FMin        float64 `json:"f_min,omitempty"`
	FMax        float64 `json:"f_max,omitempty"`
	FreqStep    float64 `json:"f_step,omitempty"`
	TimeToCoal  float64 `json:"time_to_coal,omitempty"`
	Approximant string  `json:"approximant,omitempty"`
}

// simResponse is the wire response. TD responses fill hp/hc, FD responses
// amp/ph; a nonempty error means the simulator rejected the parameters.
type simResponse struct {
	X      []float64 `json:"x"`
	HPlus  []float64 `json:"hp,omitempty"`
	HCross []float64 `json:"hc,omitempty"`
	Amp    []float64 `json:"amp,omitempty"`
	Phase  []float64 `json:"ph,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// withDefaults fills request fields the caller left open.
func (e *External) withDefaults(p Params) Params {
	if p.Approximant == "" {
		p.Approximant = e.cfg.Approximant
	}
	return p
}

// GenerateTD invokes the simulator in the time domain.
func (e *External) GenerateTD(ctx context.Context, p Params) (TDWaveform, error) {
	if err := p.Validate(); err != nil {
		return TDWaveform{}, err
	}
	resp, err := e.invoke(ctx, buildRequest("td", e.withDefaults(p)))
	if err != nil {
		return TDWaveform{}, err
	}
	if len(resp.HPlus) != len(resp.X) || len(resp.HCross) != len(resp.X) {
		return TDWaveform{}, fmt.Errorf("%w: simulator returned %d/%d/%d samples",
			ErrGeneration, len(resp.X), len(resp.HPlus), len(resp.HCross))
	}
	return TDWaveform{Times: resp.X, HPlus: resp.HPlus, HCross: resp.HCross}, nil
}

// GenerateFD invokes the simulator in the frequency domain.
func (e *External) GenerateFD(ctx context.Context, p Params) (FDWaveform, error) {
	if err := p.Validate(); err != nil {
		return FDWaveform{}, err
	}
	resp, err := e.invoke(ctx, buildRequest("fd", e.withDefaults(p)))
	if err != nil {
		return FDWaveform{}, err
	}
	if len(resp.Amp) != len(resp.X) || len(resp.Phase) != len(resp.X) {
		return FDWaveform{}, fmt.Errorf("%w: simulator returned %d/%d/%d samples",
			ErrGeneration, len(resp.X), len(resp.Amp), len(resp.Phase))
	}
	return FDWaveform{Freqs: resp.X, Amp: resp.Amp, Phase: resp.Phase}, nil
}

func buildRequest(domain string, p Params) simRequest {
	return simRequest{
		Domain:      domain,
		Mass1:       p.Mass1,
		Mass2:       p.Mass2,
		Spin1z:      p.Spin1z,
		Spin2z:      p.Spin2z,
		Distance:    p.Distance,
		Inclination: p.Inclination,
		RefPhase:    p.RefPhase,
		TimeStep:    p.TimeStep,
		FMin:        p.FMin,
		FMax:        p.FMax,
		FreqStep:    p.FreqStep,
		TimeToCoal:  p.TimeToCoal,
		Approximant: p.Approximant,
	}
}

func (e *External) invoke(ctx context.Context, req simRequest) (*simResponse, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := e.breaker.Execute(func() (interface{}, error) {
		return e.run(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return nil, err
	}
	return out.(*simResponse), nil
}

func (e *External) run(ctx context.Context, req simRequest) (*simResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("generator: encode request: %w", err)
	}

	cmd := exec.CommandContext(cctx, e.cfg.Command[0], e.cfg.Command[1:]...)
	cmd.Stdin = bytes.NewReader(append(payload, '\n'))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v (stderr: %s)",
			ErrGeneration, e.cfg.Command[0], err, truncate(stderr.String(), 256))
	}

	var resp simResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: simulator: %s", ErrGeneration, resp.Error)
	}
	return &resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
