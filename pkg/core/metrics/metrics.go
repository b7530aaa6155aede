// Package metrics exposes Prometheus collectors for forecast runs and the
// HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pnl_forecast/pkg/core/forecast"
)

// Recorder holds the collectors. Each Recorder registers on its own
// registry so tests and multiple servers do not collide.
type Recorder struct {
	registry *prometheus.Registry

	ForecastsComputed *prometheus.CounterVec
	ForecastDuration  prometheus.Histogram
	CandidateOutcomes *prometheus.CounterVec
	ModelFallbacks    *prometheus.CounterVec

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	RateLimitRejected prometheus.Counter
}

// New creates a Recorder with Go runtime and process collectors included.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates a Recorder registering on reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,

		ForecastsComputed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_computations_total",
				Help: "Total number of forecasts computed by selected revenue model",
			},
			[]string{"model"},
		),
		ForecastDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forecast_computation_duration_seconds",
				Help:    "Duration of forecast computation in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),
		CandidateOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_model_candidates_total",
				Help: "Backtest outcomes per candidate model",
			},
			[]string{"model", "status"},
		),
		ModelFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_model_fallbacks_total",
				Help: "Forecasts that fell back to the manual trend, by reason",
			},
			[]string{"reason"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		RateLimitRejected: f.NewCounter(
			prometheus.CounterOpts{
				Name: "forecast_rate_limit_rejected_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
	}
}

// ObserveForecast records one engine run.
func (r *Recorder) ObserveForecast(sel forecast.Selection, elapsed time.Duration) {
	r.ForecastsComputed.WithLabelValues(sel.Model).Inc()
	r.ForecastDuration.Observe(elapsed.Seconds())
	for _, c := range sel.Candidates {
		r.CandidateOutcomes.WithLabelValues(c.Model, string(c.Status)).Inc()
	}
	if sel.FallbackReason != "" {
		r.ModelFallbacks.WithLabelValues(sel.FallbackReason).Inc()
	}
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	r.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveRateLimited records a rejected request.
func (r *Recorder) ObserveRateLimited() {
	r.RateLimitRejected.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
