// Package metrics exposes Prometheus collectors for the curator pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	feedFetchesTotal           *prometheus.CounterVec
	articlesTotal              *prometheus.CounterVec
	curatorVerdictsTotal       *prometheus.CounterVec
	cyclesTotal                *prometheus.CounterVec
	cycleDurationSeconds       prometheus.Histogram
	pipelineState              *prometheus.GaugeVec
	pacerWaitSeconds           *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		feedFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsfeed_feed_fetches_total",
				Help: "Feed fetches, labeled by feed host and status.",
			},
			[]string{"site", "status"},
		)

		articlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsfeed_articles_total",
				Help: "Articles leaving each pipeline stage, labeled by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		)

		curatorVerdictsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsfeed_curator_verdicts_total",
				Help: "Curation verdicts, labeled by decision and verdict source.",
			},
			[]string{"decision", "source"},
		)

		cyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsfeed_cycles_total",
				Help: "Pipeline cycles, labeled by result.",
			},
			[]string{"result"},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "newsfeed_cycle_duration_seconds",
				Help:    "Wall time of completed pipeline cycles.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
			},
		)

		pipelineState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "newsfeed_pipeline_state",
				Help: "1 for the orchestrator's current state, 0 otherwise.",
			},
			[]string{"state"},
		)

		pacerWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newsfeed_pacer_wait_seconds",
				Help:    "Time spent waiting for a backend call slot, labeled by lane.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"lane"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFeedFetch counts a feed fetch outcome.
func ObserveFeedFetch(feedURL, status string) {
	Init()
	feedFetchesTotal.WithLabelValues(SanitizeSite(feedURL), status).Inc()
}

// ObserveArticles adds n articles to the stage/outcome counter.
func ObserveArticles(stage, outcome string, n int) {
	if n <= 0 {
		return
	}
	Init()
	articlesTotal.WithLabelValues(stage, outcome).Add(float64(n))
}

// ObserveVerdict counts a curation verdict.
func ObserveVerdict(decision, source string) {
	Init()
	curatorVerdictsTotal.WithLabelValues(decision, source).Inc()
}

// ObserveCycle counts a cycle and, for finished cycles, records its duration.
func ObserveCycle(result string, duration time.Duration) {
	Init()
	cyclesTotal.WithLabelValues(result).Inc()
	if duration > 0 {
		cycleDurationSeconds.Observe(duration.Seconds())
	}
}

// SetPipelineState flips the state gauge from prev to next.
func SetPipelineState(prev, next string) {
	Init()
	if prev != "" {
		pipelineState.WithLabelValues(prev).Set(0)
	}
	pipelineState.WithLabelValues(next).Set(1)
}

// ObservePacerWait records how long a caller waited for its slot.
func ObservePacerWait(lane string, wait time.Duration) {
	Init()
	pacerWaitSeconds.WithLabelValues(lane).Observe(wait.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
