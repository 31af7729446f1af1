package tempstore

import "github.com/prometheus/client_golang/prometheus"

var (
	stagedBytesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tempstore",
			Subsystem: "buffer",
			Name:      "staged_bytes_total",
			Help:      "Total bytes appended to staging ledgers.",
		})

	stagedObjectsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tempstore",
			Subsystem: "buffer",
			Name:      "staged_objects_total",
			Help:      "Total object states staged.",
		})

	spillCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tempstore",
			Subsystem: "buffer",
			Name:      "spill_total",
			Help:      "Counter of staging ledgers moved from memory to a temp file.",
		})

	corruptionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tempstore",
			Subsystem: "buffer",
			Name:      "corruption_total",
			Help:      "Counter of staged reads that failed the length or checksum check.",
		})

	poolIdleGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tempstore",
			Subsystem: "pool",
			Name:      "idle_buffers",
			Help:      "Number of reset buffers waiting in the pool.",
		})
)

// RegisterMetrics registers the staging buffer metrics with the default prometheus registry.
func RegisterMetrics() {
	prometheus.MustRegister(stagedBytesCounter)
	prometheus.MustRegister(stagedObjectsCounter)
	prometheus.MustRegister(spillCounter)
	prometheus.MustRegister(corruptionCounter)
	prometheus.MustRegister(poolIdleGauge)
}
