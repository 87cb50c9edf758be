package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	requestsTotal        *prometheus.CounterVec
	requestLatency       *prometheus.HistogramVec
	requestErrors        *prometheus.CounterVec
	submissionsTotal     *prometheus.CounterVec
	submitLatencySeconds prometheus.Histogram
	activeScreens        prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors for the session API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_api_requests_total",
			Help: "Total number of session API requests served.",
		}, []string{"method", "route", "status"})

		requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "session_api_latency_seconds",
			Help:    "Latency distribution for session API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		requestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_api_errors_total",
			Help: "Total number of error responses returned by the session API.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_submissions_total",
			Help: "Submissions processed, labelled by classified outcome.",
		}, []string{"outcome"})

		submitLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_submit_roundtrip_seconds",
			Help:    "Full submit round-trip latency including the grading call.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		activeScreens = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_active_screens",
			Help: "Number of mounted test screens.",
		})

		prometheus.MustRegister(requestsTotal, requestLatency, requestErrors, submissionsTotal, submitLatencySeconds, activeScreens)
	})
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the request latency histogram.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatency
}

// Errors exposes the error response counter.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return requestErrors
}

// Submissions exposes the per-outcome submission counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// SubmitLatency exposes the submit round-trip histogram.
func SubmitLatency() prometheus.Histogram {
	RegisterMetrics()
	return submitLatencySeconds
}

// ActiveScreens exposes the mounted screen gauge.
func ActiveScreens() prometheus.Gauge {
	RegisterMetrics()
	return activeScreens
}
