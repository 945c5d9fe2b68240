// Package metrics defines Prometheus collectors for the relations service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relation mutation metrics
var (
	// RelationsCreatedTotal tracks created relation rows by type.
	RelationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relations_created_total",
			Help: "Total number of relation rows created by type",
		},
		[]string{"type"},
	)

	// RelationsRemovedTotal tracks removed relation rows by type.
	RelationsRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relations_removed_total",
			Help: "Total number of relation rows removed by type",
		},
		[]string{"type"},
	)

	// RelationAddRejectedTotal tracks rejected add attempts by error kind.
	RelationAddRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relation_add_rejected_total",
			Help: "Total number of rejected relation adds by error kind",
		},
		[]string{"kind"},
	)
)

// Integrity scanner metrics
var (
	// IntegrityScansTotal tracks integrity scan runs by mode.
	IntegrityScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrity_scans_total",
			Help: "Total number of integrity scan runs by mode (dry_run, repair)",
		},
		[]string{"mode"},
	)

	// IntegrityIssuesTotal tracks detected issues by category.
	IntegrityIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrity_issues_total",
			Help: "Total number of integrity issues detected by category",
		},
		[]string{"category"},
	)

	// IntegrityScanDuration tracks scan run duration.
	IntegrityScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "integrity_scan_duration_seconds",
			Help:    "Integrity scan duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// IntegrityRowsScanned tracks the per-run scanned row count.
	IntegrityRowsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "integrity_rows_scanned_total",
			Help: "Total number of relation rows examined by the scanner",
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)
)
