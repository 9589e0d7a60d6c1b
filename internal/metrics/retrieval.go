package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and generation Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbgate",
			Name:      "retrieval_requests_total",
			Help:      "Total number of backend retrieval calls",
		},
		[]string{"backend", "status"},
	)

	RetrievalRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbgate",
			Name:      "retrieval_request_duration_seconds",
			Help:      "Backend retrieval call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)

	RetrievalResultsMerged = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbgate",
			Name:      "retrieval_results_merged",
			Help:      "Number of results surviving the merge per request",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"type"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbgate",
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"model", "status"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbgate",
			Name:      "generation_tokens_total",
			Help:      "Total generation tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbgate",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	PromptCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbgate",
			Name:      "prompt_cache_total",
			Help:      "Prompt cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	IngestionDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbgate",
			Name:      "ingestion_documents_total",
			Help:      "Documents processed by the sync pipeline",
		},
		[]string{"status"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers the gateway metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalRequestDuration)
	prometheus.MustRegister(RetrievalResultsMerged)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationTokensTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(PromptCacheTotal)
	prometheus.MustRegister(IngestionDocumentsTotal)
	retrievalMetricsRegistered = true
}
