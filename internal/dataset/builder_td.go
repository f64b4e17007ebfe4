package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gwforge/gwforge/internal/datafile"
	"github.com/gwforge/gwforge/internal/generator"
	"github.com/gwforge/gwforge/internal/grid"
	"github.com/gwforge/gwforge/internal/metrics"
	"github.com/gwforge/gwforge/internal/sample"
	"github.com/gwforge/gwforge/internal/telemetry"
	"github.com/gwforge/gwforge/internal/wave"
)

// tdOvershoot pads the requested inspiral length so the generated waveform
// always covers the grid even after the merger is re-located to the true
// amplitude peak.
const tdOvershoot = 1.1

// ErrTooManyFailures aborts a run whose generator keeps rejecting draws.
var ErrTooManyFailures = errors.New("dataset: too many consecutive generation failures")

// TDConfig drives time-domain dataset generation.
type TDConfig struct {
	// Samples is the number of rows to produce.
	Samples int

	// NGrid is the number of points of the shared time grid.
	NGrid int

	// Alpha distorts the grid toward the merger; 1 keeps it uniform.
	Alpha float64

	// TimeToCoal is how many seconds of inspiral the grid covers before
	// the merger.
	TimeToCoal float64

	// PostMerger is how many seconds past the merger the grid keeps.
	PostMerger float64

	// TimeStep is the raw sampling step handed to the generator.
	TimeStep float64

	// TotalMass fixes the mass scale; the mass ratio is the sampled
	// quantity and individual masses follow from it.
	TotalMass float64

	// Distance and Inclination are held fixed across the dataset; the
	// stored amplitude scales out trivially with both.
	Distance    float64
	Inclination float64

	// SpikeTol is the relative tolerance of the amplitude glitch repair.
	SpikeTol float64

	// MaxSkips bounds consecutive failed draws before the run aborts.
	MaxSkips int

	// ProgressEvery is the progress log interval in rows.
	ProgressEvery int
}

// DefaultTDConfig returns the settings used when the caller overrides
// nothing: a one-second inspiral of a 20 solar-mass system at 4 kHz.
func DefaultTDConfig() TDConfig {
	return TDConfig{
		Samples:       100,
		NGrid:         2048,
		Alpha:         0.5,
		TimeToCoal:    1.0,
		PostMerger:    0.005,
		TimeStep:      1.0 / 4096.0,
		TotalMass:     20.0,
		Distance:      1.0,
		Inclination:   0.0,
		SpikeTol:      wave.DefaultSpikeTol,
		MaxSkips:      100,
		ProgressEvery: telemetry.DefaultInterval,
	}
}

// TDBuilder generates time-domain datasets: for each row it draws
// (q, s1, s2), generates the waveform, validates and repairs it, centers
// the time axis on the amplitude peak, and resamples amplitude and
// unwrapped phase onto the shared grid.
type TDBuilder struct {
	gen   generator.Generator
	space *sample.Space
	cfg   TDConfig
	grid  []float64
	col   *metrics.Collector
}

// NewTDBuilder validates the configuration and precomputes the shared
// grid. col may be nil when no metrics endpoint is running.
func NewTDBuilder(gen generator.Generator, space *sample.Space, cfg TDConfig, col *metrics.Collector) (*TDBuilder, error) {
	if gen == nil || space == nil {
		return nil, errors.New("dataset: nil generator or sample space")
	}
	if cfg.Samples <= 0 {
		return nil, fmt.Errorf("dataset: samples must be positive, got %d", cfg.Samples)
	}
	if cfg.TimeStep <= 0 || cfg.TotalMass <= 0 {
		return nil, fmt.Errorf("dataset: time step and total mass must be positive")
	}
	ts, err := grid.PowerLawTime(cfg.TimeToCoal, cfg.PostMerger, cfg.NGrid, cfg.Alpha)
	if err != nil {
		return nil, err
	}
	return &TDBuilder{gen: gen, space: space, cfg: cfg, grid: ts, col: col}, nil
}

// Grid returns the shared time axis rows are resampled onto.
func (b *TDBuilder) Grid() []float64 { return b.grid }

// Header describes the dataset this builder produces, for streaming sinks
// and manifests.
func (b *TDBuilder) Header() datafile.Header {
	return datafile.Header{
		NGrid:  b.cfg.NGrid,
		Domain: "time",
		Step:   b.cfg.TimeStep,
		TCoal:  b.cfg.TimeToCoal,
		Ranges: spaceRanges(b.space),
	}
}

// Run produces cfg.Samples rows into sink. Draws the generator rejects are
// skipped and redrawn; any other error aborts the run.
func (b *TDBuilder) Run(ctx context.Context, sink Sink) (Stats, error) {
	prog := telemetry.NewProgress("dataset-td", b.cfg.Samples, b.cfg.ProgressEvery)
	defer prog.Done()

	skips := 0
	for produced := 0; produced < b.cfg.Samples; {
		if err := ctx.Err(); err != nil {
			return b.stats(prog), err
		}

		theta := b.space.Draw()
		row, repaired, err := b.buildRow(ctx, theta)
		if err != nil {
			if !skippable(err) {
				return b.stats(prog), err
			}
			skips++
			prog.Skip()
			b.countSkip()
			log.Debug().Err(err).
				Float64("q", theta[0]).
				Float64("s1", theta[1]).
				Float64("s2", theta[2]).
				Msg("draw skipped")
			if skips > b.cfg.MaxSkips {
				return b.stats(prog), fmt.Errorf("%w: %d in a row, last: %v", ErrTooManyFailures, skips, err)
			}
			continue
		}
		skips = 0

		if err := sink.Append(theta[:], row.Amp, row.Phase); err != nil {
			return b.stats(prog), fmt.Errorf("dataset: append row: %w", err)
		}
		produced++
		prog.Success()
		prog.Repaired(repaired)
		b.countSuccess(repaired)
	}
	return b.stats(prog), nil
}

// buildRow runs one draw through generate, validate, repair and resample.
func (b *TDBuilder) buildRow(ctx context.Context, theta [sample.ThetaDim]float64) (wave.Waveform, int, error) {
	m1, m2 := sample.Masses(theta[0], b.cfg.TotalMass)
	p := generator.Params{
		Mass1:       m1,
		Mass2:       m2,
		Spin1z:      theta[1],
		Spin2z:      theta[2],
		Distance:    b.cfg.Distance,
		Inclination: b.cfg.Inclination,
		TimeStep:    b.cfg.TimeStep,
		TimeToCoal:  b.cfg.TimeToCoal * tdOvershoot,
	}

	start := time.Now()
	wf, err := b.gen.GenerateTD(ctx, p)
	b.observe(time.Since(start))
	if err != nil {
		return wave.Waveform{}, 0, err
	}

	h := make([]complex128, len(wf.Times))
	for i := range h {
		h[i] = complex(wf.HPlus[i], wf.HCross[i])
	}
	w := wave.FromComplex(h)
	repaired := wave.RepairSpikes(w.Amp, b.cfg.SpikeTol)

	peak, err := wave.PeakIndex(w.Amp)
	if err != nil {
		return wave.Waveform{}, 0, fmt.Errorf("%w: %v", generator.ErrGeneration, err)
	}
	if peak == 0 || peak == len(w.Amp)-1 {
		return wave.Waveform{}, 0, fmt.Errorf("%w: amplitude peak on waveform edge", generator.ErrGeneration)
	}

	// center the axis on the true peak and anchor the phase there, so
	// every row shares the merger convention regardless of backend
	times := make([]float64, len(wf.Times))
	for i, t := range wf.Times {
		times[i] = t - wf.Times[peak]
	}
	if times[0] > b.grid[0] || times[len(times)-1] < b.grid[len(b.grid)-1] {
		return wave.Waveform{}, 0, fmt.Errorf("%w: waveform does not cover the grid [%g, %g]",
			generator.ErrGeneration, times[0], times[len(times)-1])
	}
	phPeak := w.Phase[peak]
	for i := range w.Phase {
		w.Phase[i] -= phPeak
	}

	ampG, err := grid.Resample(times, w.Amp, b.grid)
	if err != nil {
		return wave.Waveform{}, 0, fmt.Errorf("dataset: resample amplitude: %w", err)
	}
	phG, err := grid.Resample(times, w.Phase, b.grid)
	if err != nil {
		return wave.Waveform{}, 0, fmt.Errorf("dataset: resample phase: %w", err)
	}
	return wave.Waveform{Amp: ampG, Phase: phG}, repaired, nil
}

func (b *TDBuilder) stats(prog *telemetry.Progress) Stats {
	s, sk, rep := prog.Counts()
	return Stats{Generated: s, Skipped: sk, Repaired: rep}
}

func (b *TDBuilder) observe(d time.Duration) {
	if b.col != nil {
		b.col.GenerateSeconds.Observe(d.Seconds())
	}
}

func (b *TDBuilder) countSuccess(repaired int) {
	if b.col != nil {
		b.col.SamplesGenerated.Inc()
		b.col.RowsWritten.Inc()
		b.col.SpikesRepaired.Add(float64(repaired))
	}
}

func (b *TDBuilder) countSkip() {
	if b.col != nil {
		b.col.SamplesSkipped.Inc()
	}
}

// skippable reports whether a generation error means "redraw" rather than
// "abort the run".
func skippable(err error) bool {
	return errors.Is(err, generator.ErrGeneration) ||
		errors.Is(err, generator.ErrBackendUnavailable)
}

// spaceRanges converts the sampled space into header ranges.
func spaceRanges(s *sample.Space) []datafile.NamedRange {
	qLo, qHi := s.MassRatio.Bounds()
	s1Lo, s1Hi := s.Spin1.Bounds()
	s2Lo, s2Hi := s.Spin2.Bounds()
	return []datafile.NamedRange{
		{Name: "q", Lo: qLo, Hi: qHi},
		{Name: "s1", Lo: s1Lo, Hi: s1Hi},
		{Name: "s2", Lo: s2Lo, Hi: s2Hi},
	}
}

// Stats summarizes a finished (or aborted) run.
type Stats struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Repaired  int `json:"repaired"`
}
