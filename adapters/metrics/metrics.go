// Package metrics provides Prometheus metrics collection for the admin API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the admin API.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Action metrics
	ActionsTotal *prometheus.CounterVec

	// Model document metrics
	SpecReloads      prometheus.Counter
	SpecReloadErrors prometheus.Counter
	SpecModels       prometheus.Gauge
}

// New creates a new metrics collector with all metrics registered.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pnpadmin",
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pnpadmin",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pnpadmin",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pnpadmin",
				Name:      "actions_total",
				Help:      "Total number of custom action invocations",
			},
			[]string{"action", "handler"},
		),

		SpecReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pnpadmin",
				Name:      "spec_reloads_total",
				Help:      "Total number of successful model document reloads",
			},
		),
		SpecReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pnpadmin",
				Name:      "spec_reload_errors_total",
				Help:      "Total number of model document reload errors",
			},
		),
		SpecModels: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pnpadmin",
				Name:      "spec_models",
				Help:      "Number of models in the active document",
			},
		),
	}
}

// NormalizePath reduces cardinality by truncating long paths.
func NormalizePath(path string) string {
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}
