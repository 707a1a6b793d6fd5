// Package metrics provides Prometheus metrics for PassVault.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passvault",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "passvault",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks the number of in-flight HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "passvault",
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// LoginAttempts counts authentication attempts by outcome.
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passvault",
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts",
		},
		[]string{"outcome"}, // "success" or "failure"
	)

	// CipherOperations counts encryption/decryption operations by outcome.
	CipherOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "passvault",
			Name:      "cipher_operations_total",
			Help:      "Total number of vault secret encryption/decryption operations",
		},
		[]string{"operation", "outcome"}, // "encrypt"/"decrypt", "success"/"failure"
	)

	// EntriesTotal tracks the total number of stored vault entries.
	EntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "passvault",
			Name:      "entries_total",
			Help:      "Total number of vault entries stored",
		},
	)

	// UsersTotal tracks the total number of registered users.
	UsersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "passvault",
			Name:      "users_total",
			Help:      "Total number of registered users",
		},
	)

	// RevokedTokensTotal counts tokens denylisted at logout.
	RevokedTokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "passvault",
			Name:      "revoked_tokens_total",
			Help:      "Total number of session tokens revoked before expiry",
		},
	)

	// DatabaseConnections tracks database connection pool stats.
	DatabaseConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "passvault",
			Name:      "database_connections",
			Help:      "Database connection pool statistics",
		},
		[]string{"state"}, // "in_use", "idle", "max_open"
	)
)
