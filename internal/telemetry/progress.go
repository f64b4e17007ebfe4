// Package telemetry reports dataset-generation progress: structured log
// notices every fixed number of samples, plus a compact carriage-return
// progress line when stderr is an interactive terminal.
package telemetry

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// DefaultInterval is how many successful samples pass between notices.
const DefaultInterval = 50

// Progress tracks one generation run. Not safe for concurrent use; the
// builders are single-threaded by design.
type Progress struct {
	name     string
	total    int
	every    int
	success  int
	skipped  int
	repaired int
	start    time.Time
	tty      bool
}

// NewProgress starts tracking a run of total samples, reporting every
// `every` successes (DefaultInterval when <= 0).
func NewProgress(name string, total, every int) *Progress {
	if every <= 0 {
		every = DefaultInterval
	}
	return &Progress{
		name:  name,
		total: total,
		every: every,
		start: time.Now(),
		tty:   term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Success records one appended sample and emits a notice on the interval.
func (p *Progress) Success() {
	p.success++
	if p.success%p.every == 0 {
		p.emit()
	}
}

// Skip records one discarded draw.
func (p *Progress) Skip() { p.skipped++ }

// Repaired records spike repairs applied to accepted samples.
func (p *Progress) Repaired(n int) { p.repaired += n }

// Counts returns the running totals.
func (p *Progress) Counts() (success, skipped, repaired int) {
	return p.success, p.skipped, p.repaired
}

// Done emits the final summary and clears any interactive line.
func (p *Progress) Done() {
	if p.tty {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	log.Info().
		Str("run", p.name).
		Int("generated", p.success).
		Int("skipped", p.skipped).
		Int("repaired_samples", p.repaired).
		Dur("elapsed", time.Since(p.start)).
		Msg("generation finished")
}

func (p *Progress) emit() {
	elapsed := time.Since(p.start)
	rate := float64(p.success) / elapsed.Seconds()

	ev := log.Info().
		Str("run", p.name).
		Int("generated", p.success).
		Int("total", p.total).
		Int("skipped", p.skipped).
		Float64("per_sec", rate)
	if p.total > 0 && rate > 0 {
		remaining := time.Duration(float64(p.total-p.success)/rate) * time.Second
		ev = ev.Dur("eta", remaining.Round(time.Second))
	}
	ev.Msg("generation progress")

	if p.tty && p.total > 0 {
		pct := 100 * float64(p.success) / float64(p.total)
		fmt.Fprintf(os.Stderr, "\r\033[K%s %d/%d (%.1f%%) skipped=%d",
			p.name, p.success, p.total, pct, p.skipped)
	}
}
