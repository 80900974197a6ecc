package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream provider metrics: embeddings, chat completions and vector queries.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragsearch",
			Name:      "provider_requests_total",
			Help:      "Total number of upstream provider requests",
		},
		[]string{"provider", "operation", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragsearch",
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)

	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragsearch",
			Name:      "provider_tokens_total",
			Help:      "Total tokens consumed at upstream providers",
		},
		[]string{"provider", "operation", "type"},
	)

	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragsearch",
			Name:      "provider_errors_total",
			Help:      "Total upstream provider errors",
		},
		[]string{"provider", "operation", "error_type"},
	)
)

// Provider operations.
const (
	OpEmbed    = "embed"
	OpComplete = "complete"
	OpQuery    = "query"
)

var providerMetricsRegistered bool

// RegisterProviderMetrics registers upstream provider metrics. Must be called once from main.
func RegisterProviderMetrics() {
	if providerMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderTokensTotal)
	prometheus.MustRegister(ProviderErrorsTotal)
	providerMetricsRegistered = true
}
