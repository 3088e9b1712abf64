// Package metrics provides Prometheus metrics for the pairing service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var connectionStates = []string{"idle", "connecting", "open", "closed"}

var (
	// Connection metrics.
	ConnectionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pairing",
		Subsystem: "connection",
		Name:      "state",
		Help:      "Current connection state (1 for the active state, 0 otherwise).",
	}, []string{"state"})
	Disconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairing",
		Subsystem: "connection",
		Name:      "disconnects_total",
		Help:      "Total number of disconnects by reason and recovery action.",
	}, []string{"reason", "action"})

	// Queue metrics.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pairing",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Number of pending pairing requests across all phones.",
	})
	QueueExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pairing",
		Subsystem: "queue",
		Name:      "expired_total",
		Help:      "Total number of requests that expired before being processed.",
	})

	// Generation metrics.
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairing",
		Subsystem: "codes",
		Name:      "requests_total",
		Help:      "Total number of pairing requests by result.",
	}, []string{"result"})
	CodesGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pairing",
		Subsystem: "codes",
		Name:      "generated_total",
		Help:      "Total number of pairing codes generated.",
	})
	RateLimitRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pairing",
		Subsystem: "codes",
		Name:      "rate_limit_retries_total",
		Help:      "Total number of provider rate-limit retries.",
	})
	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pairing",
		Subsystem: "codes",
		Name:      "batch_duration_seconds",
		Help:      "Time spent generating one batch of codes.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Storage metrics.
	PersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pairing",
		Subsystem: "storage",
		Name:      "persist_failures_total",
		Help:      "Total number of batches that could not be written to disk.",
	})
	AuditFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pairing",
		Subsystem: "storage",
		Name:      "audit_failures_total",
		Help:      "Total number of audit log rows that could not be appended.",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionState,
		Disconnects,
		QueueDepth,
		QueueExpired,
		Requests,
		CodesGenerated,
		RateLimitRetries,
		BatchDuration,
		PersistFailures,
		AuditFailures,
	)
}

// SetConnectionState flags state as the active one.
func SetConnectionState(state string) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		ConnectionState.WithLabelValues(s).Set(v)
	}
}
