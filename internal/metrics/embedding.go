package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query embedding metrics. Venue documents are embedded offline, so only
// search queries show up here.
var (
	EmbeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "venuerank",
			Name:      "query_embedding_duration_seconds",
			Help:      "Latency of query embedding calls by outcome",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model", "outcome"}, // "ok" / "error"
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuerank",
			Name:      "query_embedding_tokens_total",
			Help:      "Tokens billed for query embeddings",
		},
		[]string{"model"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuerank",
			Name:      "query_embedding_cache_total",
			Help:      "Query embedding cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var embOnce sync.Once

// RegisterEmbeddingMetrics registers the query embedding metrics. Safe to call more than once.
func RegisterEmbeddingMetrics() {
	embOnce.Do(func() {
		prometheus.MustRegister(EmbeddingDuration, EmbeddingTokensTotal, EmbeddingCacheTotal)
	})
}

// ObserveEmbedding records one query embedding call. Cache hits report zero tokens.
func ObserveEmbedding(model string, start time.Time, tokens int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	EmbeddingDuration.WithLabelValues(model, outcome).Observe(time.Since(start).Seconds())
	if tokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(model).Add(float64(tokens))
	}
}
