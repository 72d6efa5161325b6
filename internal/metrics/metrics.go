package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for beacon
type Registry struct {
	reg *prometheus.Registry

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Registry Metrics
	RegistrationsTotal *prometheus.CounterVec
	StatusUpdatesTotal *prometheus.CounterVec
	StoreOpDuration    *prometheus.HistogramVec

	// Cache Metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Freshness Metrics
	Services      prometheus.Gauge
	ServicesFresh prometheus.Gauge
	ServicesOK    prometheus.Gauge
}

// NewRegistry initializes a Registry backed by its own prometheus.Registry
// so that several instances can coexist in tests.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beacon_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "beacon_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed by method",
			},
			[]string{"method"},
		),

		// Registry Metrics
		RegistrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_registrations_total",
				Help: "Service registrations by result",
			},
			[]string{"result"},
		),
		StatusUpdatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_status_updates_total",
				Help: "Status reports by result",
			},
			[]string{"result"},
		),
		StoreOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beacon_store_operation_duration_seconds",
				Help:    "Record store operation time in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_cache_hits_total",
				Help: "Record cache hits",
			},
		),
		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_cache_misses_total",
				Help: "Record cache misses",
			},
		),

		// Freshness Metrics
		Services: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_services",
				Help: "Number of registered services",
			},
		),
		ServicesFresh: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_services_fresh",
				Help: "Number of services whose last report is within their period",
			},
		),
		ServicesOK: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_services_ok",
				Help: "Number of services currently reporting OK",
			},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer returns the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
