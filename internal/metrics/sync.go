package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine, sync and search Prometheus metrics.
var (
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncdex",
			Name:      "engine_requests_total",
			Help:      "Total number of search engine requests",
		},
		[]string{"op", "status"}, // status: 2xx / 4xx / 5xx / transport_error
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "syncdex",
			Name:      "engine_request_duration_seconds",
			Help:      "Search engine request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	SyncOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncdex",
			Name:      "sync_operations_total",
			Help:      "Total number of completed sync operations",
		},
		[]string{"index", "kind", "outcome"}, // outcome: succeeded / skipped / failed / dropped / rejected
	)

	SyncAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncdex",
			Name:      "sync_attempts_total",
			Help:      "Total number of dispatch attempts, including retries",
		},
		[]string{"index", "kind"},
	)

	SyncLagSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "syncdex",
			Name:      "sync_lag_seconds",
			Help:      "Time from mutation event to terminal state",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"index"},
	)

	SyncQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "syncdex",
			Name:      "sync_queue_depth",
			Help:      "Operations published but not yet terminal",
		},
	)

	DeadLettersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncdex",
			Name:      "dead_letters_total",
			Help:      "Terminal failures recorded in the dead-letter list",
		},
		[]string{"index"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncdex",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"index", "status"}, // status: ok / invalid / error
	)

	SearchHitsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "syncdex",
			Name:      "search_hits_returned",
			Help:      "Number of hits returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
		},
		[]string{"index"},
	)
)

var syncMetricsRegistered bool

// RegisterSyncMetrics registers the engine, sync and search metrics. Must be called once from main.
func RegisterSyncMetrics() {
	if syncMetricsRegistered {
		return
	}
	prometheus.MustRegister(EngineRequestsTotal)
	prometheus.MustRegister(EngineRequestDuration)
	prometheus.MustRegister(SyncOperationsTotal)
	prometheus.MustRegister(SyncAttemptsTotal)
	prometheus.MustRegister(SyncLagSeconds)
	prometheus.MustRegister(SyncQueueDepth)
	prometheus.MustRegister(DeadLettersTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchHitsReturned)
	syncMetricsRegistered = true
}
