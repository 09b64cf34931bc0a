// Package telemetry holds the Prometheus metrics of the vault server.
//
// All metrics are registered against the default registry and exposed by the
// HTTP server on GET /metrics. HTTP metrics are labelled by the echo route
// template (e.g. /api/credentials/:id/reveal), never by the raw URL, so user
// supplied path segments cannot inflate label cardinality.
package telemetry

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophvault_http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gophvault_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

// AuthEventsTotal counts auth gateway operations. operation is one of
// login, register, refresh, logout, authenticate; outcome is "ok" or the
// error kind (e.g. "auth_failed", "expired", "revoked").
var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gophvault_auth_events_total",
		Help: "Auth gateway operations by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// RevealAttemptsTotal counts PIN-gated reveals by outcome.
var RevealAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gophvault_reveal_attempts_total",
		Help: "PIN-gated credential reveals by outcome.",
	},
	[]string{"outcome"},
)

// SessionsPrunedTotal counts expired session entries removed by the pruner.
var SessionsPrunedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gophvault_sessions_pruned_total",
		Help: "Expired session entries removed, by kind (refresh, revoked).",
	},
	[]string{"kind"},
)

var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "gophvault_db_open_connections",
		Help: "Number of open connections in the database pool.",
	},
)

// StartDBStatsCollector samples db pool stats every interval until ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
