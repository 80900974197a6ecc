package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline metrics.
var (
	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragsearch",
			Name:      "cache_total",
			Help:      "Cache lookups by class and result",
		},
		[]string{"class", "result"}, // class: "warm" / "hot"; result: "hit" / "miss"
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragsearch",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"profile"},
	)

	SummaryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragsearch",
			Name:      "summary_total",
			Help:      "Search summary outcomes",
		},
		[]string{"status"}, // "generated" / "skipped" / "failed"
	)

	QueryResultsCount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragsearch",
			Name:      "query_results_count",
			Help:      "Number of results returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"profile"},
	)

	QueryLogDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragsearch",
			Name:      "query_log_dropped_total",
			Help:      "Query log events dropped because the buffer was full or the write failed",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers query pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(SummaryTotal)
	prometheus.MustRegister(QueryResultsCount)
	prometheus.MustRegister(QueryLogDroppedTotal)
	pipelineMetricsRegistered = true
}
