// Package metrics defines the Prometheus collectors exported by fnplot.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values besides the PlotError kinds.
const (
	OutcomeOK       = "ok"
	OutcomeCanceled = "canceled"
)

// Metrics groups the collectors. A nil *Metrics discards observations.
type Metrics struct {
	plots        *prometheus.CounterVec
	duration     prometheus.Histogram
	invalidRatio prometheus.Histogram
	cacheLookups *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with registerer, which may
// be nil to skip registration (useful in tests).
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		plots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fnplot_plots_total",
			Help: "Plot requests by outcome (ok or the error kind)",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fnplot_plot_duration_seconds",
			Help:    "Time spent tokenizing, parsing, sampling and evaluating a request",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		invalidRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fnplot_invalid_sample_ratio",
			Help:    "Fraction of grid samples marked invalid in successful plots",
			Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 0.99},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fnplot_parse_cache_lookups_total",
			Help: "Parse cache lookups by result",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fnplot_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "fnplot_http_request_duration_seconds",
			Help: "HTTP request latency by route",
		}, []string{"route"}),
	}

	if registerer != nil {
		registerer.MustRegister(m.plots)
		registerer.MustRegister(m.duration)
		registerer.MustRegister(m.invalidRatio)
		registerer.MustRegister(m.cacheLookups)
		registerer.MustRegister(m.httpRequests)
		registerer.MustRegister(m.httpDuration)
	}
	return m
}

// ObservePlot records a finished plot request.
func (m *Metrics) ObservePlot(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.plots.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

// ObserveInvalid records the share of invalid samples of a successful plot.
func (m *Metrics) ObserveInvalid(invalid, total int) {
	if m == nil || total == 0 {
		return
	}
	m.invalidRatio.Observe(float64(invalid) / float64(total))
}

// ObserveCache records a parse cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveHTTP records a served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
