package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessgate_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccessChecks counts combined access evaluations and their outcome (granted|denied|error).
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessgate_access_checks_total",
			Help: "Total number of combined access checks",
		},
		[]string{"result"},
	)

	// PermissionChecks counts single permission gate evaluations by permission and outcome.
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessgate_permission_checks_total",
			Help: "Total number of permission gate checks",
		},
		[]string{"permission", "result"},
	)

	// SnapshotCache tracks user snapshot cache effectiveness (hit|miss).
	SnapshotCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessgate_snapshot_cache_total",
			Help: "User snapshot cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "accessgate_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accessgate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
