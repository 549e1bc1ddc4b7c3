package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Daemon subsystem metrics
var (
	// ErrorsTotal tracks total errors encountered by the daemon itself
	ErrorsTotal prometheus.Counter

	// FreeSpacePercent tracks current free space percentage for the rotation root
	FreeSpacePercent *prometheus.GaugeVec
)

// initDaemonMetrics initializes all daemon subsystem metrics
func initDaemonMetrics() {
	ErrorsTotal = NewCounter(
		"filemanager_daemon_errors_total",
		"Total number of errors encountered by the filemanager daemon.",
	)

	FreeSpacePercent = NewGaugeVec(
		"filemanager_free_space_percent",
		"Current free space percentage on the filesystem holding the rotation root.",
		[]string{"path"},
	)
}

// registerDaemonMetrics registers all daemon metrics with Prometheus
func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(FreeSpacePercent)
}

// UpdateFreeSpacePercent updates the free space percentage for a path
func UpdateFreeSpacePercent(path string, percent float64) {
	FreeSpacePercent.WithLabelValues(path).Set(percent)
}
