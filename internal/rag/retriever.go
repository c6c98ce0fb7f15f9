// Package rag turns a question into grounded context and a grounded answer.
// The retriever finds relevant chunks, the synthesizer phrases the reply.
package rag

import (
	"context"
	"fmt"

	"github.com/haasonsaas/docqa/internal/observability"
	"github.com/haasonsaas/docqa/pkg/models"
)

// Embedder produces a query vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher answers nearest-neighbor queries over the stored chunks.
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]models.RetrievedChunk, error)
}

// Retriever embeds a question and filters the nearest chunks by a
// similarity threshold.
type Retriever struct {
	embedder  Embedder
	searcher  Searcher
	topK      int
	threshold float32
	reporter  observability.Reporter
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopK overrides the default candidate count.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) { r.topK = k }
}

// WithThreshold overrides the default similarity cutoff.
func WithThreshold(threshold float32) RetrieverOption {
	return func(r *Retriever) { r.threshold = threshold }
}

// WithRetrieverReporter attaches a logger.
func WithRetrieverReporter(reporter observability.Reporter) RetrieverOption {
	return func(r *Retriever) { r.reporter = reporter }
}

// NewRetriever wires an embedder and a searcher with defaults of three
// candidates and a 0.7 similarity cutoff.
func NewRetriever(embedder Embedder, searcher Searcher, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder:  embedder,
		searcher:  searcher,
		topK:      3,
		threshold: 0.7,
		reporter:  observability.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the question, fetches the nearest chunks, and keeps those
// at or above the similarity threshold in their original rank order. A topK
// of zero or less uses the configured default. An empty candidate set is not
// an error, only an empty result.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) (models.RetrievalResult, error) {
	if question == "" {
		return models.RetrievalResult{}, fmt.Errorf("retrieve: question is empty")
	}
	if topK <= 0 {
		topK = r.topK
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("embed question: %w", err)
	}

	candidates, err := r.searcher.Query(ctx, vector, topK, nil)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("query store: %w", err)
	}

	relevant := make([]models.RetrievedChunk, 0, len(candidates))
	for _, chunk := range candidates {
		if chunk.Similarity >= r.threshold {
			relevant = append(relevant, chunk)
		}
	}

	r.reporter.Info(ctx, "retrieval complete",
		"retrieved", len(candidates),
		"relevant", len(relevant),
		"threshold", r.threshold,
	)

	return models.RetrievalResult{
		Chunks:              relevant,
		TotalRetrieved:      len(candidates),
		TotalRelevant:       len(relevant),
		HasRelevantContext:  len(relevant) > 0,
		SimilarityThreshold: r.threshold,
	}, nil
}
