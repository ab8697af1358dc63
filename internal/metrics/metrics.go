// Package metrics exposes Prometheus metrics for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "floodsync"

// Provider owns a private registry and the service collectors.
type Provider struct {
	reg             *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	floodResults    *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

// Init creates a Provider with the Go and process collectors registered.
func Init(version string) *Provider {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Provider{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 16), // 5ms to ~160s
			},
			[]string{"method", "route", "status"},
		),
		upstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "earthengine_requests_total",
				Help:      "Earth Engine REST calls by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "earthengine_latency_seconds",
				Help:      "Latency of Earth Engine REST calls in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15),
			},
			[]string{"op"},
		),
		floodResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flood_map_results_total",
				Help:      "Flood map results by layer and status.",
			},
			[]string{"layer", "status"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
			},
			[]string{"name"},
		),
	}

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version"},
	)
	if version == "" {
		version = "dev"
	}
	build.WithLabelValues(version).Set(1)

	reg.MustRegister(
		p.httpRequests,
		p.httpDuration,
		p.upstreamCalls,
		p.upstreamLatency,
		p.floodResults,
		p.breakerState,
		build,
	)

	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request. route is the matched route
// pattern, not the raw path.
func (p *Provider) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	st := strconv.Itoa(status)
	p.httpRequests.WithLabelValues(method, route, st).Inc()
	p.httpDuration.WithLabelValues(method, route, st).Observe(elapsed.Seconds())
}

// ObserveUpstream records one Earth Engine call. Its signature matches
// earthengine.Observer.
func (p *Provider) ObserveUpstream(op string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.upstreamCalls.WithLabelValues(op, outcome).Inc()
	p.upstreamLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveFloodResult counts a flood map outcome.
func (p *Provider) ObserveFloodResult(layer, status string) {
	p.floodResults.WithLabelValues(layer, status).Inc()
}

// SetBreakerState records the breaker state by name: "closed", "half-open"
// or "open".
func (p *Provider) SetBreakerState(name, state string) {
	v := -1.0
	switch state {
	case "closed":
		v = 0
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	p.breakerState.WithLabelValues(name).Set(v)
}
