package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for the pipeline.
//
// Tracked:
//   - chunks produced and vectors stored per ingestion
//   - embedding requests and per-item failures
//   - question queries, retrieval relevance, and end-to-end latency
type Metrics struct {
	// ChunksProduced counts chunks emitted by the splitter.
	// Labels: source_type (pdf|docx|txt)
	ChunksProduced *prometheus.CounterVec

	// EmbeddingRequests counts embedding calls by provider and status.
	// Labels: provider, status (success|error)
	EmbeddingRequests *prometheus.CounterVec

	// EmbeddingFailures counts chunks excluded from storage because
	// their embedding failed after retries.
	EmbeddingFailures prometheus.Counter

	// VectorsStored counts vectors persisted to the index.
	VectorsStored prometheus.Counter

	// VectorsDeleted counts vectors removed during cleanup.
	VectorsDeleted prometheus.Counter

	// Questions counts questions asked, by whether relevant context was found.
	// Labels: relevant (true|false)
	Questions *prometheus.CounterVec

	// AskDuration measures end-to-end question latency in seconds.
	AskDuration prometheus.Histogram

	// GenerationRequests counts generative model calls.
	// Labels: provider, status (success|error)
	GenerationRequests *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with the default
// registry. Call once at startup.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers metrics with a caller-supplied registerer.
// Tests use this to avoid duplicate registration on the default registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChunksProduced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docqa_chunks_produced_total",
				Help: "Total number of chunks produced by the splitter",
			},
			[]string{"source_type"},
		),

		EmbeddingRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docqa_embedding_requests_total",
				Help: "Total number of embedding requests by provider and status",
			},
			[]string{"provider", "status"},
		),

		EmbeddingFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docqa_embedding_failures_total",
				Help: "Total number of chunks whose embedding failed after retries",
			},
		),

		VectorsStored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docqa_vectors_stored_total",
				Help: "Total number of vectors written to the index",
			},
		),

		VectorsDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docqa_vectors_deleted_total",
				Help: "Total number of vectors deleted from the index",
			},
		),

		Questions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docqa_questions_total",
				Help: "Total number of questions asked, by relevance outcome",
			},
			[]string{"relevant"},
		),

		AskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docqa_ask_duration_seconds",
				Help:    "End-to-end latency of answering a question",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),

		GenerationRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docqa_generation_requests_total",
				Help: "Total number of generative model calls by provider and status",
			},
			[]string{"provider", "status"},
		),
	}
}
