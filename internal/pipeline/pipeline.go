// Package pipeline wires extraction, chunking, embedding, storage, and
// retrieval into the two end-to-end flows: ingesting a document and
// answering a question.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/docqa/internal/chunker"
	"github.com/haasonsaas/docqa/internal/embeddings"
	"github.com/haasonsaas/docqa/internal/extract"
	"github.com/haasonsaas/docqa/internal/observability"
	"github.com/haasonsaas/docqa/internal/rag"
	"github.com/haasonsaas/docqa/internal/vectorstore"
	"github.com/haasonsaas/docqa/pkg/models"
)

// Pipeline owns the full document QA flow.
type Pipeline struct {
	splitter    *chunker.Splitter
	embedder    *embeddings.Client
	store       *vectorstore.Store
	retriever   *rag.Retriever
	synthesizer *rag.Synthesizer
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger attaches a logger.
func WithLogger(logger *observability.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = metrics }
}

// New assembles a pipeline from its stages. Metrics are optional; logging
// defaults to a no-op logger.
func New(splitter *chunker.Splitter, embedder *embeddings.Client, store *vectorstore.Store, retriever *rag.Retriever, synthesizer *rag.Synthesizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		splitter:    splitter,
		embedder:    embedder,
		store:       store,
		retriever:   retriever,
		synthesizer: synthesizer,
		logger:      observability.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest extracts text from a document, splits it, embeds every chunk, and
// stores the successful embeddings. Chunks whose embedding failed after
// retries are dropped and counted, not fatal.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename string) (models.IngestResult, error) {
	ctx = withRequestID(ctx)
	start := time.Now()

	docs, err := extract.Extract(data, filename)
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("extract %s: %w", filename, err)
	}
	if len(docs) == 0 {
		return models.IngestResult{}, fmt.Errorf("extract %s: no text content found", filename)
	}

	chunks := p.splitter.Split(docs)
	if len(chunks) == 0 {
		return models.IngestResult{}, fmt.Errorf("split %s: no chunks produced", filename)
	}
	if p.metrics != nil {
		p.metrics.ChunksProduced.WithLabelValues(string(docs[0].Metadata.SourceType)).Add(float64(len(chunks)))
	}
	p.logger.Info(ctx, "document chunked",
		"document", filename,
		"pages", len(docs),
		"chunks", len(chunks),
	)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	results, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("embed %s: %w", filename, err)
	}

	embedded, failed := 0, 0
	for _, result := range results {
		if result.Failed() {
			failed++
		} else {
			embedded++
		}
	}
	if p.metrics != nil {
		p.metrics.EmbeddingRequests.WithLabelValues(p.embedder.Name(), "success").Add(float64(embedded))
		p.metrics.EmbeddingRequests.WithLabelValues(p.embedder.Name(), "error").Add(float64(failed))
		p.metrics.EmbeddingFailures.Add(float64(failed))
	}

	put, err := p.store.Put(ctx, chunks, results)
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("store %s: %w", filename, err)
	}
	if p.metrics != nil {
		p.metrics.VectorsStored.Add(float64(put.TotalStored))
	}

	p.logger.Info(ctx, "document ingested",
		"document", filename,
		"chunks", len(chunks),
		"embedded", embedded,
		"failed", failed,
		"stored", put.TotalStored,
		"batches", put.Batches,
		"duration", time.Since(start).String(),
	)

	return models.IngestResult{
		Document:  filename,
		Documents: len(docs),
		Chunks:    len(chunks),
		Embedded:  embedded,
		Failed:    failed,
		Stored:    put.TotalStored,
		Batches:   put.Batches,
	}, nil
}

// Ask retrieves context for the question and synthesizes an answer. A topK
// of zero or less uses the retriever's configured candidate count.
func (p *Pipeline) Ask(ctx context.Context, question string, topK int) (models.AnswerResult, error) {
	ctx = withRequestID(ctx)
	start := time.Now()

	retrieval, err := p.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("retrieve: %w", err)
	}
	if p.metrics != nil {
		p.metrics.Questions.WithLabelValues(strconv.FormatBool(retrieval.HasRelevantContext)).Inc()
	}

	answer, err := p.synthesizer.Answer(ctx, question, retrieval)
	if p.metrics != nil && retrieval.HasRelevantContext {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.metrics.GenerationRequests.WithLabelValues("synthesizer", status).Inc()
	}
	if err != nil {
		return models.AnswerResult{}, err
	}

	if p.metrics != nil {
		p.metrics.AskDuration.Observe(time.Since(start).Seconds())
	}
	p.logger.Info(ctx, "question answered",
		"retrieved", answer.RetrievalStats.TotalRetrieved,
		"relevant", answer.RetrievalStats.TotalRelevant,
		"has_answer", answer.HasAnswer,
		"duration", time.Since(start).String(),
	)
	return answer, nil
}

// withRequestID tags the context so every log line of one flow shares an ID.
func withRequestID(ctx context.Context) context.Context {
	if ctx.Value(observability.RequestIDKey) != nil {
		return ctx
	}
	return context.WithValue(ctx, observability.RequestIDKey, uuid.NewString())
}
