// Package metrics provides Prometheus metrics for index synchronization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idxsync_sync_sessions_total",
			Help: "Total number of sync sessions by mode and result",
		},
		[]string{"mode", "result"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idxsync_sync_duration_seconds",
			Help:    "Sync session duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	packagesAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idxsync_packages_applied_total",
			Help: "Total number of package events applied by committed sessions",
		},
		[]string{"mode"},
	)

	verificationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idxsync_verification_failures_total",
			Help: "Total number of containers rejected by signature verification",
		},
	)
)

// RecordSync records one finished sync session. result is "processed",
// "unchanged" or the kind of the error that ended the session.
func RecordSync(mode, result string, duration time.Duration) {
	syncSessionsTotal.WithLabelValues(mode, result).Inc()
	syncDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordPackagesApplied adds the package events of a committed session.
func RecordPackagesApplied(mode string, count int) {
	packagesAppliedTotal.WithLabelValues(mode).Add(float64(count))
}

// RecordVerificationFailure counts a rejected container.
func RecordVerificationFailure() {
	verificationFailuresTotal.Inc()
}

// WriteTextfile writes every registered metric to path in the text exposition
// format, for pickup by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
