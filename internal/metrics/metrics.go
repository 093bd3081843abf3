// Package metrics exposes Prometheus collectors for the HTTP surface and the upload pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for one service instance.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	uploadsTotal        *prometheus.CounterVec
	uploadDuration      prometheus.Histogram
	uploadBytes         prometheus.Histogram
	normalizeDuration   prometheus.Histogram
	rateLimitedTotal    prometheus.Counter
	deletionsTotal      prometheus.Counter
	eventFailuresTotal  *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memegen_http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memegen_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		uploadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memegen_uploads_total",
				Help: "Upload attempts by outcome and the stage they ended in",
			},
			[]string{"outcome", "stage"},
		),
		uploadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "memegen_upload_duration_seconds",
			Help:    "End-to-end upload pipeline latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		uploadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "memegen_upload_bytes",
			Help:    "Size of accepted raw uploads in bytes",
			Buckets: []float64{100e3, 500e3, 1e6, 2e6, 5e6, 10e6},
		}),
		normalizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "memegen_normalize_duration_seconds",
			Help:    "Time spent resizing and re-encoding one image",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		rateLimitedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "memegen_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		deletionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "memegen_deletions_total",
			Help: "Memes deleted",
		}),
		eventFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memegen_event_publish_failures_total",
				Help: "Lifecycle events that could not be published",
			},
			[]string{"type"},
		),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpload records the outcome of one upload attempt.
// A nil receiver is a no-op so callers can run without metrics.
func (m *Metrics) ObserveUpload(outcome, stage string, size int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome, stage).Inc()
	m.uploadDuration.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess && size > 0 {
		m.uploadBytes.Observe(float64(size))
	}
}

// ObserveNormalize records the duration of one normalization.
func (m *Metrics) ObserveNormalize(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.normalizeDuration.Observe(elapsed.Seconds())
}

// IncRateLimited counts one rejected request.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

// IncDeletions counts one deleted meme.
func (m *Metrics) IncDeletions() {
	if m == nil {
		return
	}
	m.deletionsTotal.Inc()
}

// IncEventFailure counts an event that could not be published.
func (m *Metrics) IncEventFailure(eventType string) {
	if m == nil {
		return
	}
	m.eventFailuresTotal.WithLabelValues(eventType).Inc()
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Middleware records request counts and latency. Routes are labelled by their
// registered pattern so ids do not blow up label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
