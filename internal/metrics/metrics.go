// Package metrics declares the Prometheus collectors of the import pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kosarica/catalog-service/internal/types"
)

var (
	// PreviewsTotal counts preview requests by vendor and outcome (staged, shape_error,
	// validation_error, error)
	PreviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_previews_total",
		Help: "Total number of import previews by vendor and outcome",
	}, []string{"vendor", "outcome"})

	// RowsSkipped counts rows dropped by the normalizer
	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_rows_skipped_total",
		Help: "Total number of skipped rows by vendor and reason",
	}, []string{"vendor", "reason"})

	// DiffBucketSize tracks how many products land in each diff bucket per preview
	DiffBucketSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_import_diff_bucket_size",
		Help:    "Number of products per diff bucket in a preview",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
	}, []string{"bucket"})

	// CommitsTotal counts commits by vendor and outcome (success, partial, failed)
	CommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_commits_total",
		Help: "Total number of commits by vendor and outcome",
	}, []string{"vendor", "outcome"})

	// CommitItemErrors counts per-product commit failures
	CommitItemErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_commit_item_errors_total",
		Help: "Total number of per-product commit errors by vendor",
	}, []string{"vendor"})

	// CommitDuration tracks end-to-end commit time
	CommitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_import_commit_duration_seconds",
		Help:    "Time taken to apply a commit by vendor",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"vendor"})

	// AuditWriteFailures counts audit records that could not be written
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_import_audit_write_failures_total",
		Help: "Total number of failed audit record writes",
	})

	// CatalogCacheInvalidations counts explicit catalog cache invalidations
	CatalogCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_invalidations_total",
		Help: "Total number of explicit catalog cache invalidations",
	})
)

// CommitOutcome labels a commit result: a system-level error means the catalog was not
// written, item errors alone mean a partial commit
func CommitOutcome(result *types.CommitResult) string {
	if result.Success {
		return "success"
	}
	for _, e := range result.Errors {
		if e.ProductID == types.SystemErrorID {
			return "failed"
		}
	}
	return "partial"
}
