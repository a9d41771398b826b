// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

var (
	invocationsTotal           *prometheus.CounterVec
	stageFailuresTotal         *prometheus.CounterVec
	uploadedBytesTotal         prometheus.Counter
	headlessPromotionsTotal    *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		invocationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webscraper_invocations_total",
				Help: "Total number of workflow invocations, labeled by workflow and outcome.",
			},
			[]string{"workflow", "outcome"},
		)

		stageFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webscraper_stage_failures_total",
				Help: "Total number of failed workflow stages, labeled by workflow, stage and error category.",
			},
			[]string{"workflow", "stage", "category"},
		)

		uploadedBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webscraper_uploaded_bytes_total",
				Help: "Total number of bytes written to object storage.",
			},
		)

		headlessPromotionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webscraper_headless_promotions_total",
				Help: "Total number of page loads promoted to a headless render, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome labels an invocation result: "success" or the error category.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return workflow.Category(err)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObservePromotion counts a headless promotion; outcome is "rendered" or "fallback".
func ObservePromotion(outcome string) {
	Init()
	headlessPromotionsTotal.WithLabelValues(outcome).Inc()
}

// Recorder implements workflow.Recorder on the package collectors.
type Recorder struct{}

// NewRecorder initializes the collectors and returns a Recorder.
func NewRecorder() Recorder {
	Init()
	return Recorder{}
}

// ObserveInvocation counts one finished invocation.
func (Recorder) ObserveInvocation(wf string, err error) {
	invocationsTotal.WithLabelValues(wf, Outcome(err)).Inc()
}

// ObserveStageFailure counts the stage an invocation failed at.
func (Recorder) ObserveStageFailure(wf, stage string, err error) {
	stageFailuresTotal.WithLabelValues(wf, stage, workflow.Category(err)).Inc()
}

// ObserveUpload adds to the uploaded byte count.
func (Recorder) ObserveUpload(bytes int) {
	if bytes > 0 {
		uploadedBytesTotal.Add(float64(bytes))
	}
}
