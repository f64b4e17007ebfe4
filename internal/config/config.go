// Package config loads and validates run configuration from YAML and
// turns it into the concrete builder, sampler, and generator settings the
// rest of the pipeline consumes.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gwforge/gwforge/internal/dataset"
	"github.com/gwforge/gwforge/internal/generator"
	"github.com/gwforge/gwforge/internal/sample"
	"github.com/gwforge/gwforge/internal/telemetry"
	"github.com/gwforge/gwforge/internal/wave"
)

// ErrInvalid indicates configuration the pipeline cannot run with.
var ErrInvalid = errors.New("config: invalid configuration")

// RangeSpec is a parameter that may be written either as one scalar
// (fixed) or as a two-element [lo, hi] sequence (sampled uniformly).
type RangeSpec struct {
	Lo, Hi float64
	ranged bool
}

// UnmarshalYAML accepts `q: 2.5` and `q: [1.0, 10.0]` alike.
func (r *RangeSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("config: range scalar: %w", err)
		}
		r.Lo, r.Hi, r.ranged = v, v, false
		return nil
	case yaml.SequenceNode:
		var pair []float64
		if err := node.Decode(&pair); err != nil {
			return fmt.Errorf("config: range pair: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("%w: range needs exactly [lo, hi], got %d values", ErrInvalid, len(pair))
		}
		r.Lo, r.Hi, r.ranged = pair[0], pair[1], true
		return nil
	default:
		return fmt.Errorf("%w: range must be a scalar or a [lo, hi] pair", ErrInvalid)
	}
}

// Param converts the spec into the sampler's representation.
func (r RangeSpec) Param() (sample.Param, error) {
	if !r.ranged {
		return sample.Fixed(r.Lo), nil
	}
	return sample.Range(r.Lo, r.Hi)
}

// Ranges groups the sampled waveform parameters.
type Ranges struct {
	MassRatio RangeSpec `yaml:"q"`
	Spin1     RangeSpec `yaml:"s1"`
	Spin2     RangeSpec `yaml:"s2"`
}

// TimeSection configures time-domain generation.
type TimeSection struct {
	Alpha       float64 `yaml:"alpha"`
	TimeToCoal  float64 `yaml:"t_coal"`
	PostMerger  float64 `yaml:"post_merger"`
	TimeStep    float64 `yaml:"time_step"`
	TotalMass   float64 `yaml:"total_mass"`
	Distance    float64 `yaml:"distance"`
	Inclination float64 `yaml:"inclination"`
}

// FrequencySection configures frequency-domain generation.
type FrequencySection struct {
	FMin      float64 `yaml:"f_min"`
	FMax      float64 `yaml:"f_max"`
	LogSpaced bool    `yaml:"log_spaced"`
	TotalMass float64 `yaml:"total_mass"`
	Distance  float64 `yaml:"distance"`
}

// BackendSection selects and configures the waveform generator.
type BackendSection struct {
	// Kind is "analytic" or "external".
	Kind string `yaml:"kind"`

	// Approximant labels the model; forwarded to external simulators.
	Approximant string `yaml:"approximant"`

	// Command is the external simulator executable plus fixed arguments.
	Command []string `yaml:"command"`

	TimeoutSec  float64 `yaml:"timeout_sec"`
	MaxRate     float64 `yaml:"max_rate"`
	TripAfter   uint32  `yaml:"trip_after"`
	CooldownSec float64 `yaml:"cooldown_sec"`
}

// Config is the full run configuration.
type Config struct {
	// Domain is "time" or "frequency".
	Domain string `yaml:"domain"`

	Samples int    `yaml:"samples"`
	NGrid   int    `yaml:"n_grid"`
	Seed    uint64 `yaml:"seed"`

	// Output is the dataset path; empty keeps rows in memory.
	Output string `yaml:"output"`

	// SpikeTol overrides the amplitude glitch-repair tolerance.
	SpikeTol float64 `yaml:"spike_tol"`

	// MaxSkips bounds consecutive failed draws.
	MaxSkips int `yaml:"max_skips"`

	ProgressEvery int    `yaml:"progress_every"`
	MetricsAddr   string `yaml:"metrics_addr"`

	Ranges    Ranges           `yaml:"ranges"`
	Time      TimeSection      `yaml:"time"`
	Frequency FrequencySection `yaml:"frequency"`
	Backend   BackendSection   `yaml:"backend"`
}

// Default returns the configuration a file is merged over.
func Default() Config {
	td := dataset.DefaultTDConfig()
	fd := dataset.DefaultFDConfig()
	return Config{
		Domain:        "time",
		Samples:       td.Samples,
		NGrid:         td.NGrid,
		Seed:          1,
		SpikeTol:      wave.DefaultSpikeTol,
		MaxSkips:      td.MaxSkips,
		ProgressEvery: telemetry.DefaultInterval,
		Ranges: Ranges{
			MassRatio: RangeSpec{Lo: 1, Hi: 10, ranged: true},
			Spin1:     RangeSpec{Lo: -0.8, Hi: 0.8, ranged: true},
			Spin2:     RangeSpec{Lo: -0.8, Hi: 0.8, ranged: true},
		},
		Time: TimeSection{
			Alpha:       td.Alpha,
			TimeToCoal:  td.TimeToCoal,
			PostMerger:  td.PostMerger,
			TimeStep:    td.TimeStep,
			TotalMass:   td.TotalMass,
			Distance:    td.Distance,
			Inclination: td.Inclination,
		},
		Frequency: FrequencySection{
			FMin:      fd.FMin,
			FMax:      fd.FMax,
			LogSpaced: fd.LogSpaced,
			TotalMass: fd.TotalMass,
			Distance:  fd.Distance,
		},
		Backend: BackendSection{Kind: "analytic"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the builders would refuse anyway, with
// friendlier messages.
func (c *Config) Validate() error {
	switch c.Domain {
	case "time", "frequency":
	default:
		return fmt.Errorf("%w: domain must be \"time\" or \"frequency\", got %q", ErrInvalid, c.Domain)
	}
	if c.Samples <= 0 {
		return fmt.Errorf("%w: samples must be positive", ErrInvalid)
	}
	if c.NGrid < 2 {
		return fmt.Errorf("%w: n_grid must be at least 2", ErrInvalid)
	}
	if c.Ranges.MassRatio.Lo < 1 {
		return fmt.Errorf("%w: mass ratio below 1 (use q = m1/m2 >= 1)", ErrInvalid)
	}
	for _, s := range []RangeSpec{c.Ranges.Spin1, c.Ranges.Spin2} {
		if s.Lo < -1 || s.Hi > 1 {
			return fmt.Errorf("%w: spins must lie in [-1, 1]", ErrInvalid)
		}
	}
	switch c.Backend.Kind {
	case "analytic":
	case "external":
		if len(c.Backend.Command) == 0 {
			return fmt.Errorf("%w: external backend needs a command", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: backend kind must be \"analytic\" or \"external\", got %q", ErrInvalid, c.Backend.Kind)
	}
	if c.Domain == "frequency" && c.Frequency.FMin >= c.Frequency.FMax {
		return fmt.Errorf("%w: f_min must be below f_max", ErrInvalid)
	}
	return nil
}

// Space builds the sampler from the configured ranges.
func (c *Config) Space() (*sample.Space, error) {
	q, err := c.Ranges.MassRatio.Param()
	if err != nil {
		return nil, fmt.Errorf("config: q: %w", err)
	}
	s1, err := c.Ranges.Spin1.Param()
	if err != nil {
		return nil, fmt.Errorf("config: s1: %w", err)
	}
	s2, err := c.Ranges.Spin2.Param()
	if err != nil {
		return nil, fmt.Errorf("config: s2: %w", err)
	}
	return sample.NewSpace(q, s1, s2, c.Seed), nil
}

// Generator builds the configured backend.
func (c *Config) Generator() (generator.Generator, error) {
	switch c.Backend.Kind {
	case "analytic":
		return generator.NewAnalytic(generator.DefaultConfig()), nil
	case "external":
		return generator.NewExternal(generator.ExternalConfig{
			Command:     c.Backend.Command,
			Approximant: c.Backend.Approximant,
			Timeout:     time.Duration(c.Backend.TimeoutSec * float64(time.Second)),
			MaxRate:     c.Backend.MaxRate,
			TripAfter:   c.Backend.TripAfter,
			Cooldown:    time.Duration(c.Backend.CooldownSec * float64(time.Second)),
		})
	default:
		return nil, fmt.Errorf("%w: backend kind %q", ErrInvalid, c.Backend.Kind)
	}
}

// TDConfig assembles the time-domain builder configuration.
func (c *Config) TDConfig() dataset.TDConfig {
	return dataset.TDConfig{
		Samples:       c.Samples,
		NGrid:         c.NGrid,
		Alpha:         c.Time.Alpha,
		TimeToCoal:    c.Time.TimeToCoal,
		PostMerger:    c.Time.PostMerger,
		TimeStep:      c.Time.TimeStep,
		TotalMass:     c.Time.TotalMass,
		Distance:      c.Time.Distance,
		Inclination:   c.Time.Inclination,
		SpikeTol:      c.SpikeTol,
		MaxSkips:      c.MaxSkips,
		ProgressEvery: c.ProgressEvery,
	}
}

// FDConfig assembles the frequency-domain builder configuration.
func (c *Config) FDConfig() dataset.FDConfig {
	return dataset.FDConfig{
		Samples:       c.Samples,
		NGrid:         c.NGrid,
		FMin:          c.Frequency.FMin,
		FMax:          c.Frequency.FMax,
		LogSpaced:     c.Frequency.LogSpaced,
		TotalMass:     c.Frequency.TotalMass,
		Distance:      c.Frequency.Distance,
		SpikeTol:      c.SpikeTol,
		MaxSkips:      c.MaxSkips,
		ProgressEvery: c.ProgressEvery,
	}
}
