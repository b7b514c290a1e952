// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	conversions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	uploadBytes prometheus.Histogram
	inflight    prometheus.Gauge
	locks       *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docconvert_http_requests_total",
			Help: "HTTP requests by path and status code.",
		}, []string{"path", "code"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docconvert_conversions_total",
			Help: "Conversion requests by kind and outcome.",
		}, []string{"conversion", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docconvert_conversion_duration_seconds",
			Help:    "Time spent in the conversion tool.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"conversion"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docconvert_upload_bytes",
			Help:    "Size of uploaded documents.",
			Buckets: prometheus.ExponentialBuckets(16<<10, 4, 8),
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docconvert_conversions_in_flight",
			Help: "Conversions currently running.",
		}),
		locks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docconvert_locks_total",
			Help: "PDF lock requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.conversions, m.duration, m.uploadBytes, m.inflight, m.locks,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
