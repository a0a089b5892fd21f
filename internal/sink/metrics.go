package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics exposed by a Sink: buffer fill,
// drop/persist outcomes, and remote upload health.
type Metrics struct {
	BufferFill    prometheus.Gauge
	Dropped       prometheus.Counter
	Persisted     prometheus.Counter
	PersistErrors prometheus.Counter
	UploadBatches *prometheus.CounterVec
	UploadLatency prometheus.Histogram
}

// NewMetrics registers and returns a Metrics under the given namespace
// and subsystem, auto-registering with the default Prometheus registry.
func NewMetrics(namespace, subsystem string) *Metrics {
	if namespace == "" {
		namespace = "simreplay"
	}

	return &Metrics{
		BufferFill: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_buffer_events",
			Help:      "Current number of fixture events held in the sink buffer.",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_dropped_total",
			Help:      "Total number of fixture events dropped by the sink's backpressure policy.",
		}),
		Persisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_persisted_total",
			Help:      "Total number of fixture events durably persisted.",
		}),
		PersistErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_persist_errors_total",
			Help:      "Total number of fixture events that failed to persist.",
		}),
		UploadBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_remote_upload_batches_total",
			Help:      "Total number of remote-tier upload batches, labeled by outcome.",
		}, []string{"outcome"}),
		UploadLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sink_remote_upload_latency_seconds",
			Help:      "Latency of remote-tier upload batches.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
