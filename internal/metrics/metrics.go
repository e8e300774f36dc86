package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursekb_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursekb_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursekb_provider_calls_total",
			Help: "Embedding and completion provider calls",
		},
		[]string{"operation", "provider", "status"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursekb_provider_call_duration_seconds",
			Help:    "Provider call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation", "provider"},
	)

	DocumentChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coursekb_document_chunks",
			Help:    "Chunks produced per uploaded document",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	EmbeddingsPending = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursekb_embeddings_pending_total",
			Help: "Entities left in embedding-pending state after a failed embedding attempt",
		},
		[]string{"kind"},
	)

	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursekb_search_results",
			Help:    "Results returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"scope"},
	)

	QueryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursekb_query_embedding_cache_total",
			Help: "Query embedding cache lookups by result",
		},
		[]string{"result"},
	)
)
