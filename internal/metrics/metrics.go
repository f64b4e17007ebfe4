// Package metrics exposes run counters for long dataset generations: how
// many samples were generated, skipped or repaired, and how long a single
// generator invocation takes. Serving them is optional and only enabled
// when a listen address is configured.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Collector bundles the generation metrics of one process.
type Collector struct {
	SamplesGenerated prometheus.Counter
	SamplesSkipped   prometheus.Counter
	SpikesRepaired   prometheus.Counter
	RowsWritten      prometheus.Counter
	GenerateSeconds  prometheus.Histogram

	registry *prometheus.Registry
}

// NewCollector registers the gwforge metrics on a private registry so
// tests can build as many collectors as they like.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		SamplesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "gwforge_samples_generated_total",
			Help: "Waveform samples successfully generated and appended.",
		}),
		SamplesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gwforge_samples_skipped_total",
			Help: "Parameter draws skipped because generation or validation failed.",
		}),
		SpikesRepaired: factory.NewCounter(prometheus.CounterOpts{
			Name: "gwforge_spikes_repaired_total",
			Help: "Isolated amplitude glitches replaced during validation.",
		}),
		RowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "gwforge_rows_written_total",
			Help: "Dataset rows appended to persistent storage.",
		}),
		GenerateSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gwforge_generate_seconds",
			Help:    "Wall time of one generator invocation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		registry: reg,
	}
}

// Handler returns the scrape handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics and /healthz on addr in a background goroutine.
// Errors are logged, never fatal: metrics must not take a run down.
func (c *Collector) Serve(addr string) {
	r := mux.NewRouter()
	r.Handle("/metrics", c.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()
}
