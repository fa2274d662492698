// Package metrics provides Prometheus metrics for the catalog.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bitdust-io/devel-sub003/internal/events"
	"github.com/bitdust-io/devel-sub003/internal/core/index"
)

var (
	// Namespace aggregates, refreshed after Calculate
	namespaceItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bdcatalog_namespace_items",
			Help: "Number of items in a namespace",
		},
		[]string{"owner", "alias"},
	)

	namespaceFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bdcatalog_namespace_files",
			Help: "Number of file items in a namespace",
		},
		[]string{"owner", "alias"},
	)

	namespaceDirs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bdcatalog_namespace_dirs",
			Help: "Number of directory items in a namespace",
		},
		[]string{"owner", "alias"},
	)

	namespaceBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bdcatalog_namespace_bytes",
			Help: "Total known size of files in a namespace",
		},
		[]string{"owner", "alias"},
	)

	namespaceFolderBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bdcatalog_namespace_folder_bytes",
			Help: "Sum of directory sizes in a namespace",
		},
		[]string{"owner", "alias"},
	)

	namespaceBackupBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bdcatalog_namespace_backup_bytes",
			Help: "Total size of stored versions in a namespace",
		},
		[]string{"owner", "alias"},
	)

	namespaceRevision = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bdcatalog_namespace_revision",
			Help: "Current revision of a namespace",
		},
		[]string{"owner", "alias"},
	)

	// Merge metrics
	mergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdcatalog_merges_total",
			Help: "Total snapshot merge attempts",
		},
		[]string{"status"},
	)

	mergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bdcatalog_merge_duration_seconds",
			Help:    "Snapshot merge duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Event metrics
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdcatalog_events_total",
			Help: "Total item notifications emitted",
		},
		[]string{"kind"},
	)

	// Persistence metrics
	indexSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdcatalog_index_saves_total",
			Help: "Total index file writes",
		},
		[]string{"status"},
	)

	pendingOwners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bdcatalog_pending_documents",
			Help: "Number of index documents waiting for their owner to be resolved",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordNamespace publishes the aggregates of one namespace.
func RecordNamespace(owner, alias string, stats index.Stats, revision int64) {
	namespaceItems.WithLabelValues(owner, alias).Set(float64(stats.Items))
	namespaceFiles.WithLabelValues(owner, alias).Set(float64(stats.Files))
	namespaceDirs.WithLabelValues(owner, alias).Set(float64(stats.Dirs))
	namespaceBytes.WithLabelValues(owner, alias).Set(float64(stats.SizeFiles))
	namespaceFolderBytes.WithLabelValues(owner, alias).Set(float64(stats.SizeFolders))
	namespaceBackupBytes.WithLabelValues(owner, alias).Set(float64(stats.SizeBackups))
	namespaceRevision.WithLabelValues(owner, alias).Set(float64(revision))
}

// ForgetNamespace drops every series of a removed namespace.
func ForgetNamespace(owner, alias string) {
	namespaceItems.DeleteLabelValues(owner, alias)
	namespaceFiles.DeleteLabelValues(owner, alias)
	namespaceDirs.DeleteLabelValues(owner, alias)
	namespaceBytes.DeleteLabelValues(owner, alias)
	namespaceFolderBytes.DeleteLabelValues(owner, alias)
	namespaceBackupBytes.DeleteLabelValues(owner, alias)
	namespaceRevision.DeleteLabelValues(owner, alias)
}

// RecordMerge records one merge attempt.
func RecordMerge(status string, duration time.Duration) {
	mergesTotal.WithLabelValues(status).Inc()
	mergeDuration.Observe(duration.Seconds())
}

// RecordSave records an index file write.
func RecordSave(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	indexSavesTotal.WithLabelValues(status).Inc()
}

// SetPending sets the number of deferred index documents.
func SetPending(n int) {
	pendingOwners.Set(float64(n))
}

// Listener counts catalog notifications by kind
type Listener struct{}

// OnEvent implements events.Listener
func (Listener) OnEvent(e events.Event) {
	eventsTotal.WithLabelValues(e.Kind.String()).Inc()
}
