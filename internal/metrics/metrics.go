// Package metrics collects and exposes Prometheus metrics for the auth
// flow, activity fetches, and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records service metrics against one Prometheus registry. It
// satisfies the auth flow and activity fetch metric interfaces.
type Collector struct {
	authSuccess  *prometheus.CounterVec
	authFailure  *prometheus.CounterVec
	fetchSuccess prometheus.Counter
	fetchFailure *prometheus.CounterVec
	repoFailures prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_auth_success_total",
			Help: "Successful authentication callbacks by provider.",
		}, []string{"provider"}),
		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_auth_failure_total",
			Help: "Failed authentication callbacks by provider and error kind.",
		}, []string{"provider", "kind"}),
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_activity_fetch_success_total",
			Help: "Completed activity fetches.",
		}),
		fetchFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_activity_fetch_failure_total",
			Help: "Aborted activity fetches by error kind.",
		}, []string{"kind"}),
		repoFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_activity_repo_failures_total",
			Help: "Repositories skipped during otherwise successful fetches.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skillswap_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.authSuccess,
		c.authFailure,
		c.fetchSuccess,
		c.fetchFailure,
		c.repoFailures,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

// AuthSucceeded records a successful authentication callback.
func (c *Collector) AuthSucceeded(providerName string) {
	c.authSuccess.WithLabelValues(providerName).Inc()
}

// AuthFailed records a failed authentication callback.
func (c *Collector) AuthFailed(providerName string, kind string) {
	c.authFailure.WithLabelValues(providerName, kind).Inc()
}

// FetchSucceeded records a completed activity fetch and any repositories
// it had to skip.
func (c *Collector) FetchSucceeded(repoFailures int) {
	c.fetchSuccess.Inc()
	c.repoFailures.Add(float64(repoFailures))
}

// FetchFailed records an aborted activity fetch.
func (c *Collector) FetchFailed(kind string) {
	c.fetchFailure.WithLabelValues(kind).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func (c *Collector) ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler for the gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
