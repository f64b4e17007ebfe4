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

// fdOversample is the ratio of internal generation resolution to grid
// resolution: waveforms are generated on a finer uniform axis and only
// then resampled onto the shared (possibly log-spaced) grid.
const fdOversample = 4

// FDConfig drives frequency-domain dataset generation.
type FDConfig struct {
	// Samples is the number of rows to produce.
	Samples int

	// NGrid is the number of points of the shared frequency grid.
	NGrid int

	// FMin and FMax bound the stored band in Hz.
	FMin float64
	FMax float64

	// LogSpaced selects logarithmic grid spacing over uniform.
	LogSpaced bool

	// TotalMass fixes the mass scale, as in the time-domain builder.
	TotalMass float64

	// Distance is held fixed across the dataset.
	Distance float64

	// SpikeTol is the relative tolerance of the amplitude glitch repair.
	SpikeTol float64

	// MaxSkips bounds consecutive failed draws before the run aborts.
	MaxSkips int

	// ProgressEvery is the progress log interval in rows.
	ProgressEvery int
}

// DefaultFDConfig covers the ground-detector band on a log grid.
func DefaultFDConfig() FDConfig {
	return FDConfig{
		Samples:       100,
		NGrid:         2048,
		FMin:          15.0,
		FMax:          1024.0,
		LogSpaced:     true,
		TotalMass:     20.0,
		Distance:      1.0,
		SpikeTol:      wave.DefaultSpikeTol,
		MaxSkips:      100,
		ProgressEvery: telemetry.DefaultInterval,
	}
}

// FDBuilder generates frequency-domain datasets: each waveform is produced
// on a finer uniform axis over a slightly wider band, its phase unwrapped,
// and amplitude and phase resampled onto the shared grid.
type FDBuilder struct {
	gen   generator.Generator
	space *sample.Space
	cfg   FDConfig
	grid  []float64
	col   *metrics.Collector
}

// NewFDBuilder validates the configuration and precomputes the shared
// grid. col may be nil.
func NewFDBuilder(gen generator.Generator, space *sample.Space, cfg FDConfig, col *metrics.Collector) (*FDBuilder, error) {
	if gen == nil || space == nil {
		return nil, errors.New("dataset: nil generator or sample space")
	}
	if cfg.Samples <= 0 {
		return nil, fmt.Errorf("dataset: samples must be positive, got %d", cfg.Samples)
	}
	if cfg.TotalMass <= 0 {
		return nil, errors.New("dataset: total mass must be positive")
	}
	if cfg.NGrid < 2 {
		return nil, fmt.Errorf("dataset: n_grid must be at least 2, got %d", cfg.NGrid)
	}
	// the band is widened by one fine step on each side at generation
	// time; FMin at or below that step would push the generator below 0 Hz
	if step := fineStep(cfg); cfg.FMin <= step {
		return nil, fmt.Errorf("dataset: f_min %g Hz must exceed the internal step %g Hz (widen the band or raise n_grid)",
			cfg.FMin, step)
	}

	var fs []float64
	var err error
	if cfg.LogSpaced {
		fs, err = grid.LogFreq(cfg.FMin, cfg.FMax, cfg.NGrid)
	} else {
		fs, err = grid.UniformFreq(cfg.FMin, cfg.FMax, cfg.NGrid)
	}
	if err != nil {
		return nil, err
	}
	return &FDBuilder{gen: gen, space: space, cfg: cfg, grid: fs, col: col}, nil
}

// Grid returns the shared frequency axis rows are resampled onto.
func (b *FDBuilder) Grid() []float64 { return b.grid }

// Header describes the dataset this builder produces.
func (b *FDBuilder) Header() datafile.Header {
	return datafile.Header{
		NGrid:  b.cfg.NGrid,
		Domain: "frequency",
		Step:   fineStep(b.cfg),
		Ranges: spaceRanges(b.space),
	}
}

// fineStep is the internal uniform generation step.
func fineStep(cfg FDConfig) float64 {
	return (cfg.FMax - cfg.FMin) / float64(fdOversample*cfg.NGrid)
}

// Run produces cfg.Samples rows into sink, with the same skip-and-redraw
// contract as the time-domain builder.
func (b *FDBuilder) Run(ctx context.Context, sink Sink) (Stats, error) {
	prog := telemetry.NewProgress("dataset-fd", b.cfg.Samples, b.cfg.ProgressEvery)
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

// buildRow generates one waveform on the fine band and resamples it onto
// the shared grid.
func (b *FDBuilder) buildRow(ctx context.Context, theta [sample.ThetaDim]float64) (wave.Waveform, int, error) {
	m1, m2 := sample.Masses(theta[0], b.cfg.TotalMass)
	step := fineStep(b.cfg)
	p := generator.Params{
		Mass1:    m1,
		Mass2:    m2,
		Spin1z:   theta[1],
		Spin2z:   theta[2],
		Distance: b.cfg.Distance,
		// generate slightly beyond the stored band so resampling never
		// extrapolates at the edges
		FMin:     b.cfg.FMin - step,
		FMax:     b.cfg.FMax + step,
		FreqStep: step,
	}

	start := time.Now()
	wf, err := b.gen.GenerateFD(ctx, p)
	b.observe(time.Since(start))
	if err != nil {
		return wave.Waveform{}, 0, err
	}
	if len(wf.Freqs) < 2 {
		return wave.Waveform{}, 0, fmt.Errorf("%w: degenerate frequency axis", generator.ErrGeneration)
	}

	wave.Unwrap(wf.Phase)
	repaired := wave.RepairSpikes(wf.Amp, b.cfg.SpikeTol)

	if wf.Freqs[0] > b.grid[0] || wf.Freqs[len(wf.Freqs)-1] < b.grid[len(b.grid)-1] {
		return wave.Waveform{}, 0, fmt.Errorf("%w: waveform band [%g, %g] does not cover the grid",
			generator.ErrGeneration, wf.Freqs[0], wf.Freqs[len(wf.Freqs)-1])
	}

	ampG, err := grid.Resample(wf.Freqs, wf.Amp, b.grid)
	if err != nil {
		return wave.Waveform{}, 0, fmt.Errorf("dataset: resample amplitude: %w", err)
	}
	phG, err := grid.Resample(wf.Freqs, wf.Phase, b.grid)
	if err != nil {
		return wave.Waveform{}, 0, fmt.Errorf("dataset: resample phase: %w", err)
	}
	return wave.Waveform{Amp: ampG, Phase: phG}, repaired, nil
}

func (b *FDBuilder) stats(prog *telemetry.Progress) Stats {
	s, sk, rep := prog.Counts()
	return Stats{Generated: s, Skipped: sk, Repaired: rep}
}

func (b *FDBuilder) observe(d time.Duration) {
	if b.col != nil {
		b.col.GenerateSeconds.Observe(d.Seconds())
	}
}

func (b *FDBuilder) countSuccess(repaired int) {
	if b.col != nil {
		b.col.SamplesGenerated.Inc()
		b.col.RowsWritten.Inc()
		b.col.SpikesRepaired.Add(float64(repaired))
	}
}

func (b *FDBuilder) countSkip() {
	if b.col != nil {
		b.col.SamplesSkipped.Inc()
	}
}
