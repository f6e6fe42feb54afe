/*
metrics.go - Prometheus metrics for the HTTP API

PURPOSE:
  Counts requests, latencies and the engine's own business outcomes
  (decisions, resolutions, fees). Exposed on GET /metrics via promhttp.

METRICS:
  http_requests_total{method,path,status}
  http_request_duration_seconds{method,path,status}
  http_in_flight_requests
  policy_decisions_total{policy,decision}
  scholarship_resolutions_total{source}
  admin_fees_applied_total
  document_units_total{kind}   kind: quota, excess

SEE ALSO:
  - server.go: mounts Instrument and the /metrics handler
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keystone/sis-engine/policy"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	policyDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policy_decisions_total",
			Help: "Policy evaluation outcomes by policy and decision.",
		},
		[]string{"policy", "decision"},
	)

	scholarshipResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarship_resolutions_total",
			Help: "Scholarship resolutions by benefit source.",
		},
		[]string{"source"},
	)

	feesApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "admin_fees_applied_total",
		Help: "Administrative fees applied, including batch runs.",
	})

	documentUnits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_units_total",
			Help: "Document units served, split by quota versus excess.",
		},
		[]string{"kind"},
	)
)

// InitMetrics registers all metrics in the default registry. Call once
// at startup.
func InitMetrics() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		policyDecisions, scholarshipResolutions, feesApplied, documentUnits,
	)
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func recordDecision(policyName string, d policy.Decision) {
	policyDecisions.WithLabelValues(policyName, string(d)).Inc()
}

// Instrument measures RPS, latency and in-flight count per request.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for labeling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
