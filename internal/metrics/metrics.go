// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts handled requests by route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsblog_http_requests_total",
		Help: "HTTP requests by method, route, and status code",
	}, []string{"method", "route", "status"})

	// HTTPDuration records request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cmsblog_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// CommentsCreated counts new comments by initial status.
	CommentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsblog_comments_created_total",
		Help: "Comments created, by initial moderation status",
	}, []string{"status"})

	// ReactionsSet counts reaction changes by type and action.
	ReactionsSet = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsblog_reactions_set_total",
		Help: "Reaction add/remove requests",
	}, []string{"type", "action"})

	// SnapshotFailures counts snapshot writes or removals that failed.
	SnapshotFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsblog_snapshot_failures_total",
		Help: "Failed post snapshot operations",
	}, []string{"op"})

	// RateLimited counts login and registration attempts rejected by the
	// rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsblog_rate_limited_total",
		Help: "Requests rejected by the auth rate limiter, by path",
	}, []string{"path"})

	// Panics counts handler panics caught by the recoverer.
	Panics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmsblog_panics_total",
		Help: "Handler panics recovered",
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
