package flush

import "github.com/prometheus/client_golang/prometheus"

var (
	flushBytesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tempstore",
			Subsystem: "flush",
			Name:      "bytes_total",
			Help:      "Total bytes of staged states written to storage.",
		})

	flushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tempstore",
			Subsystem: "flush",
			Name:      "duration_seconds",
			Help:      "Bucketed histogram of the time taken to flush a staging buffer.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 20),
		})
)

func RegisterMetrics() {
	prometheus.MustRegister(flushBytesCounter)
	prometheus.MustRegister(flushDuration)
}
