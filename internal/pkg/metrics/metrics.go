// Package metrics provides Prometheus metrics for the admin console backend (RED + audit + orchestration).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "admin_console"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~9.3s
		},
		[]string{"method", "path"},
	)

	// StoreOperationDurationSeconds times document store calls by operation and collection.
	StoreOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Document store operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	// StoreOperationErrorsTotal counts failed document store calls.
	StoreOperationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operation_errors_total",
			Help:      "Document store operations that returned an error.",
		},
		[]string{"operation", "collection"},
	)

	// AuditWriteFailuresTotal counts audit records that could not be written.
	AuditWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Audit log writes that failed and were dropped, by resource.",
		},
		[]string{"resource"},
	)

	// NamespaceListFailuresTotal counts namespaces skipped during multi-namespace lists.
	NamespaceListFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "namespace_list_failures_total",
			Help:      "Namespaces skipped while listing pods or deployments.",
		},
		[]string{"kind", "namespace"},
	)

	// CommandExecutionsTotal counts kubectl pass-through executions by verb and exit code.
	CommandExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_executions_total",
			Help:      "Read-only command executions by verb and outcome.",
		},
		[]string{"verb", "outcome"},
	)

	// AuditRetentionDeletedTotal counts audit entries removed by the retention worker.
	AuditRetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_retention_deleted_total",
			Help:      "Audit log entries deleted by the retention worker.",
		},
	)
)
