// Package metrics exports otel events as Prometheus metrics.
package metrics

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abelbrown/sideline/internal/otel"
)

// Metrics owns a private registry so tests and multiple instances don't
// collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	events    *prometheus.CounterVec
	durations *prometheus.HistogramVec
	mutations *prometheus.CounterVec
	items     *prometheus.CounterVec
}

// New registers the Sideline collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sideline_events_total",
				Help: "Total number of otel events by kind and level",
			},
			[]string{"kind", "level"},
		),
		durations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sideline_event_duration_seconds",
				Help:    "Duration carried by timed events (page loads, mutations)",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind"},
		),
		mutations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sideline_mutations_total",
				Help: "Optimistic mutations by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		items: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sideline_items_loaded_total",
				Help: "Feed items added by page and highlights loads",
			},
			[]string{"source"},
		),
	}
}

// Observe is an otel.Sink.
func (m *Metrics) Observe(e otel.Event) {
	level := string(e.Level)
	if level == "" {
		level = "none"
	}
	m.events.WithLabelValues(string(e.Kind), level).Inc()
	if e.Dur > 0 {
		m.durations.WithLabelValues(string(e.Kind)).Observe(e.Dur.Seconds())
	}

	switch e.Kind {
	case otel.KindMutationCommit:
		m.mutations.WithLabelValues(e.Msg, "commit").Inc()
	case otel.KindMutationRollback:
		m.mutations.WithLabelValues(e.Msg, "rollback").Inc()
	case otel.KindPageComplete:
		m.items.WithLabelValues("posts").Add(float64(e.Count))
	case otel.KindHighlights:
		m.items.WithLabelValues("highlights").Add(float64(e.Count))
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics until the returned server is
// shut down. The listener is bound before returning so address errors
// surface here; later serve failures go to onErr, which may be nil.
func (m *Metrics) Serve(addr string, onErr func(error)) (*http.Server, net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && onErr != nil {
			onErr(err)
		}
	}()
	return srv, ln.Addr(), nil
}
