// Package metrics exposes the promo service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for generation calls.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the promo service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Generation
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	// Queue
	PostsPlanned    prometheus.Counter
	PostTransitions *prometheus.CounterVec
	Deploys         *prometheus.CounterVec
	ChannelToggles  *prometheus.CounterVec
	NotifyFailures  prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookpromo",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookpromo",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookpromo",
			Name:      "generations_total",
			Help:      "Model calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookpromo",
			Name:      "generation_duration_seconds",
			Help:      "Model call latency by kind.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"kind"}),
		PostsPlanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookpromo",
			Name:      "posts_planned_total",
			Help:      "Draft posts created by campaign planning.",
		}),
		PostTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookpromo",
			Name:      "post_transitions_total",
			Help:      "Post status transitions by target status.",
		}, []string{"to"}),
		Deploys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookpromo",
			Name:      "deploys_total",
			Help:      "Simulated deployments by platform and result.",
		}, []string{"platform", "result"}),
		ChannelToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookpromo",
			Name:      "channel_toggles_total",
			Help:      "Channel toggles by platform and resulting status.",
		}, []string{"platform", "status"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookpromo",
			Name:      "notify_failures_total",
			Help:      "Post events that could not be published.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Generations,
		m.GenerationDuration,
		m.PostsPlanned,
		m.PostTransitions,
		m.Deploys,
		m.ChannelToggles,
		m.NotifyFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveGeneration records one model call.
func (m *Metrics) ObserveGeneration(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(kind, outcome).Inc()
	m.GenerationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveFallback counts a placeholder substituted for a failed call.
func (m *Metrics) ObserveFallback(kind string) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(kind, OutcomeFallback).Inc()
}
