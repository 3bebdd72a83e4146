package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch pipeline.
type Metrics struct {
	Registry        *prometheus.Registry
	FetchesTotal    *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
	WalkItemsTotal  *prometheus.CounterVec
	VideoJobsTotal  *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_requests_total",
			Help: "Product fetches by store and terminal outcome.",
		},
		[]string{"store", "outcome"},
	)
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Outbound page requests by status class.",
		},
		[]string{"status"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Outbound page request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Outbound request failures by error type.",
		},
		[]string{"error_type"},
	)
	walkItems := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walk_items_total",
			Help: "Category walk items by result.",
		},
		[]string{"result"},
	)
	videoJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_jobs_total",
			Help: "Video jobs by final status.",
		},
		[]string{"status"},
	)

	registry.MustRegister(fetches, requests, duration, errorsTotal, walkItems, videoJobs)

	return &Metrics{
		Registry:        registry,
		FetchesTotal:    fetches,
		RequestsTotal:   requests,
		RequestDuration: duration,
		ErrorsTotal:     errorsTotal,
		WalkItemsTotal:  walkItems,
		VideoJobsTotal:  videoJobs,
	}
}

func (m *Metrics) IncFetch(store, outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(store, outcome).Inc()
}

func (m *Metrics) IncRequest(status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) IncWalkItem(result string) {
	if m == nil {
		return
	}
	m.WalkItemsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncVideoJob(status string) {
	if m == nil {
		return
	}
	m.VideoJobsTotal.WithLabelValues(status).Inc()
}
