package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rotation subsystem metrics
var (
	// FilesScannedTotal tracks total candidates evaluated across runs
	FilesScannedTotal prometheus.Counter

	// FilesCompressedTotal tracks files compressed and removed
	FilesCompressedTotal prometheus.Counter

	// FilesSkippedTotal tracks skipped files (too recent, already compressed)
	FilesSkippedTotal prometheus.Counter

	// FilesFailedTotal tracks per-file rotation failures
	FilesFailedTotal prometheus.Counter

	// BytesSavedTotal tracks bytes saved by compression across all runs
	BytesSavedTotal prometheus.Counter

	// RunDuration tracks how long rotation runs take
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last run
	LastRunTimestamp prometheus.Gauge
)

// initRotationMetrics initializes all rotation subsystem metrics
func initRotationMetrics() {
	FilesScannedTotal = NewCounter(
		"filemanager_files_scanned_total",
		"Total number of candidate files evaluated.",
	)

	FilesCompressedTotal = NewCounter(
		"filemanager_files_compressed_total",
		"Total number of files compressed and removed.",
	)

	FilesSkippedTotal = NewCounter(
		"filemanager_files_skipped_total",
		"Total number of files skipped (too recent or already compressed).",
	)

	FilesFailedTotal = NewCounter(
		"filemanager_files_failed_total",
		"Total number of per-file rotation failures.",
	)

	BytesSavedTotal = NewCounter(
		"filemanager_bytes_saved_total",
		"Total bytes saved by gzip compression.",
	)

	RunDuration = NewDurationHistogram(
		"filemanager_run_duration_seconds",
		"Duration of rotation runs in seconds.",
	)

	LastRunTimestamp = NewGauge(
		"filemanager_last_run_timestamp",
		"Timestamp of the last rotation run (Unix epoch seconds).",
	)
}

// registerRotationMetrics registers all rotation metrics with Prometheus
func registerRotationMetrics() {
	prometheus.MustRegister(FilesScannedTotal)
	prometheus.MustRegister(FilesCompressedTotal)
	prometheus.MustRegister(FilesSkippedTotal)
	prometheus.MustRegister(FilesFailedTotal)
	prometheus.MustRegister(BytesSavedTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(LastRunTimestamp)
}

// RecordRun updates the last run timestamp to current time
func RecordRun() {
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}
