package scan

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsight_scans_total",
		Help: "Total number of scans by mode and outcome",
	}, []string{"mode", "outcome"})

	messagesClassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsight_messages_classified_total",
		Help: "Messages newly written to the ledger by label",
	}, []string{"label"})

	duplicatesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_duplicates_skipped_total",
		Help: "Messages skipped because their fingerprint was already recorded",
	})

	classifierFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_classifier_failures_total",
		Help: "Messages recorded with the fallback verdict after the classifier failed",
	})

	propagationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_propagation_errors_total",
		Help: "Aggregate propagations that left at least one sub-update unapplied",
	})

	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finsight_scan_duration_seconds",
		Help:    "Scan wall time",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 15, 30, 60, 120, 180},
	}, []string{"mode"})
)

func recordScan(result *Result, outcome string, elapsed time.Duration) {
	mode := string(result.Mode)
	if mode == "" {
		mode = "unknown"
	}
	scansTotal.WithLabelValues(mode, outcome).Inc()
	scanDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}
