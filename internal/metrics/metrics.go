// Package metrics exposes Prometheus collectors for the jobsift pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded on jobsift_fetch_total.
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeAbsent   = "absent"
	OutcomeHeadless = "headless"
)

var (
	fetchTotal             *prometheus.CounterVec
	fetchBytesTotal        *prometheus.CounterVec
	fetchRetriesTotal      *prometheus.CounterVec
	cacheLookupsTotal      *prometheus.CounterVec
	rateLimitWaitSeconds   *prometheus.HistogramVec
	filterVerdictsTotal    *prometheus.CounterVec
	dedupDroppedTotal      *prometheus.CounterVec
	sourceRecordsTotal     *prometheus.CounterVec
	activeTasks            prometheus.Gauge
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDurationSec *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times; every helper calls it.
func Init() {
	once.Do(func() {
		fetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsift_fetch_total",
				Help: "Fetch attempts that finished, labeled by origin and outcome.",
			},
			[]string{"origin", "outcome"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsift_fetch_bytes_total",
				Help: "Bytes downloaded, labeled by origin.",
			},
			[]string{"origin"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsift_fetch_retries_total",
				Help: "Retries issued after transient failures, labeled by origin.",
			},
			[]string{"origin"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsift_cache_lookups_total",
				Help: "Fetch cache lookups, labeled by result (hit, miss, stale).",
			},
			[]string{"result"},
		)

		rateLimitWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobsift_rate_limit_wait_seconds",
				Help:    "Time spent blocked by the per-origin rate limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"origin"},
		)

		filterVerdictsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsift_filter_verdicts_total",
				Help: "Classification verdicts, labeled by rejection reason or accepted.",
			},
			[]string{"reason"},
		)

		dedupDroppedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsift_dedup_dropped_total",
				Help: "Records removed by deduplication, labeled by phase (url, title).",
			},
			[]string{"phase"},
		)

		sourceRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsift_source_records_total",
				Help: "Accepted records contributed per source.",
			},
			[]string{"source"},
		)

		activeTasks = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobsift_active_tasks",
				Help: "Number of source tasks currently running.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsift_http_requests_total",
				Help: "API requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSec = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobsift_http_request_duration_seconds",
				Help:    "API request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records a finished fetch for origin.
func ObserveFetch(origin, outcome string, bytesFetched int) {
	Init()
	fetchTotal.WithLabelValues(origin, outcome).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(origin).Add(float64(bytesFetched))
	}
}

// ObserveRetry counts one retry against origin.
func ObserveRetry(origin string) {
	Init()
	fetchRetriesTotal.WithLabelValues(origin).Inc()
}

// ObserveCacheLookup counts a cache lookup by result.
func ObserveCacheLookup(result string) {
	Init()
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimitWait records the duration of a rate limit wait.
func ObserveRateLimitWait(origin string, d time.Duration) {
	Init()
	rateLimitWaitSeconds.WithLabelValues(origin).Observe(d.Seconds())
}

// ObserveVerdict counts a classification verdict. An empty reason means accepted.
func ObserveVerdict(reason string) {
	Init()
	if reason == "" {
		reason = "accepted"
	}
	filterVerdictsTotal.WithLabelValues(reason).Inc()
}

// ObserveDedupDropped adds n to the dropped counter of phase.
func ObserveDedupDropped(phase string, n int) {
	Init()
	if n > 0 {
		dedupDroppedTotal.WithLabelValues(phase).Add(float64(n))
	}
}

// ObserveSourceRecords adds the accepted record count of one source.
func ObserveSourceRecords(source string, n int) {
	Init()
	sourceRecordsTotal.WithLabelValues(source).Add(float64(n))
}

// IncActiveTasks increments the active tasks gauge.
func IncActiveTasks() {
	Init()
	activeTasks.Inc()
}

// DecActiveTasks decrements the active tasks gauge.
func DecActiveTasks() {
	Init()
	activeTasks.Dec()
}

// ObserveHTTPRequest records one API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSec.WithLabelValues(method, route).Observe(duration.Seconds())
}
