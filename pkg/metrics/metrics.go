// Package metrics exposes Prometheus collectors for the enrollment engine.
// Collectors register themselves with the default registry; the API server
// serves them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "realmd",
		Name:      "operations_total",
		Help:      "Enrollment operations by kind and outcome.",
	}, []string{"operation", "outcome"})

	discoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "realmd",
		Name:      "discovery_duration_seconds",
		Help:      "Wall time of discovery fan-outs.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	lockBusyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "realmd",
		Name:      "lock_busy_total",
		Help:      "Operations rejected because another exclusive action was running.",
	})

	knownRealms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "realmd",
		Name:      "known_realms",
		Help:      "Realms currently registered with the daemon.",
	})
)

// CountOperation records one finished operation with its outcome kind.
func CountOperation(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveDiscovery records the duration of one discovery fan-out.
func ObserveDiscovery(d time.Duration) {
	discoveryDuration.Observe(d.Seconds())
}

// CountLockBusy records a Busy rejection.
func CountLockBusy() {
	lockBusyTotal.Inc()
}

// SetKnownRealms updates the registered-realm gauge.
func SetKnownRealms(n int) {
	knownRealms.Set(float64(n))
}
