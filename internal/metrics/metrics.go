// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	feedRefreshCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novadash_feed_refresh_total",
			Help: "Total number of token feed refreshes",
		},
		[]string{"status"},
	)
	feedRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "novadash_feed_refresh_duration_seconds",
			Help:    "Duration of the combined three-feed fetch",
			Buckets: prometheus.LinearBuckets(0, 0.5, 12),
		},
	)
	pollTickCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novadash_poll_ticks_total",
			Help: "Scheduler ticks by outcome",
		},
		[]string{"outcome"},
	)
	alertsTriggeredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "novadash_alerts_triggered_total",
			Help: "Alerts reported triggered by monitoring passes",
		},
	)
	safetyCheckCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novadash_safety_checks_total",
			Help: "Safety check lookups by source",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(feedRefreshCounter)
	prometheus.MustRegister(feedRefreshDuration)
	prometheus.MustRegister(pollTickCounter)
	prometheus.MustRegister(alertsTriggeredCounter)
	prometheus.MustRegister(safetyCheckCounter)
}

// MeasureRefresh times a combined feed refresh and records its outcome.
func MeasureRefresh(f func() error) error {
	start := time.Now()
	err := f()
	feedRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		feedRefreshCounter.WithLabelValues("failed").Inc()
	} else {
		feedRefreshCounter.WithLabelValues("success").Inc()
	}
	return err
}

// TickFired records a scheduler tick that issued a refresh.
func TickFired() { pollTickCounter.WithLabelValues("fired").Inc() }

// TickSkipped records a tick that was a no-op because the session left
// MONITORING.
func TickSkipped() { pollTickCounter.WithLabelValues("skipped").Inc() }

// TickStale records a completed refresh discarded by the in-flight guard.
func TickStale() { pollTickCounter.WithLabelValues("stale").Inc() }

// AlertsTriggered adds newly triggered alerts from one monitoring pass.
func AlertsTriggered(n int) {
	if n > 0 {
		alertsTriggeredCounter.Add(float64(n))
	}
}

// SafetyCheckServed records where a safety check result came from.
func SafetyCheckServed(source string) {
	safetyCheckCounter.WithLabelValues(source).Inc()
}
