// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the tenantgate API.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPBuckets defines histogram buckets for API latencies, from 5ms to 10s.
// bcrypt verification dominates authenticated requests.
var HTTPBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantgate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantgate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: HTTPBuckets,
		},
		[]string{"method", "route"},
	)

	// RequestsInFlight tracks requests currently being served.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantgate_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// AuthDecisionsTotal counts authorization decisions by outcome and
	// identity origin ("none" when no identity was resolved).
	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantgate_auth_decisions_total",
			Help: "Authorization decisions",
		},
		[]string{"outcome", "origin"},
	)

	// DirectoryLookupDuration records user directory lookup latency by result.
	DirectoryLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantgate_directory_lookup_duration_seconds",
			Help:    "Directory lookup latency",
			Buckets: HTTPBuckets,
		},
		[]string{"result"},
	)

	// SignupsTotal counts signup attempts by result.
	SignupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantgate_signups_total",
			Help: "Signup attempts",
		},
		[]string{"result"},
	)

	// TenantStatusChangesTotal counts tenant status transitions by target status.
	TenantStatusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantgate_tenant_status_changes_total",
			Help: "Tenant status changes",
		},
		[]string{"status"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantgate_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		AuthDecisionsTotal,
		DirectoryLookupDuration,
		SignupsTotal,
		TenantStatusChangesTotal,
		RateLimitRejectedTotal,
	)
}

// Handler returns the Prometheus scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
