package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/docqa/internal/observability"
	"github.com/haasonsaas/docqa/pkg/models"
)

// NoContextAnswer is returned verbatim when nothing relevant was retrieved,
// so the model never gets a chance to improvise.
const NoContextAnswer = "I could not find relevant information in the indexed documents to answer this question."

const previewLimit = 200

// GenerationRequest carries one prompt and its sampling parameters to a
// language model.
type GenerationRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Generator produces a completion for a request.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Name() string
}

// SynthesizerConfig holds sampling parameters for answer generation.
type SynthesizerConfig struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// DefaultSynthesizerConfig returns conservative sampling settings suited to
// factual answers.
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		MaxTokens:   2000,
		Temperature: 0.3,
		TopP:        0.9,
	}
}

// Synthesizer phrases an answer from retrieved chunks using a generator.
type Synthesizer struct {
	generator Generator
	config    SynthesizerConfig
	reporter  observability.Reporter
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithSynthesizerConfig overrides the sampling parameters.
func WithSynthesizerConfig(cfg SynthesizerConfig) SynthesizerOption {
	return func(s *Synthesizer) { s.config = cfg }
}

// WithSynthesizerReporter attaches a logger.
func WithSynthesizerReporter(reporter observability.Reporter) SynthesizerOption {
	return func(s *Synthesizer) { s.reporter = reporter }
}

// NewSynthesizer wires a generator with default sampling settings.
func NewSynthesizer(generator Generator, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		generator: generator,
		config:    DefaultSynthesizerConfig(),
		reporter:  observability.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer builds a grounded prompt from the retrieval result and asks the
// generator for a completion. When no relevant chunks exist it returns the
// fixed refusal without calling the model at all.
func (s *Synthesizer) Answer(ctx context.Context, question string, retrieval models.RetrievalResult) (models.AnswerResult, error) {
	stats := models.RetrievalStats{
		TotalRetrieved:      retrieval.TotalRetrieved,
		TotalRelevant:       retrieval.TotalRelevant,
		SimilarityThreshold: retrieval.SimilarityThreshold,
	}

	if !retrieval.HasRelevantContext {
		s.reporter.Info(ctx, "no relevant context, skipping generation")
		return models.AnswerResult{
			Answer:         NoContextAnswer,
			Sources:        []models.Source{},
			HasAnswer:      false,
			RetrievalStats: stats,
		}, nil
	}

	prompt := buildPrompt(question, retrieval.Chunks)
	answer, err := s.generator.Generate(ctx, GenerationRequest{
		Prompt:      prompt,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		TopP:        s.config.TopP,
	})
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("generate answer: %w", err)
	}

	s.reporter.Info(ctx, "answer generated",
		"generator", s.generator.Name(),
		"sources", len(retrieval.Chunks),
		"answer_length", len(answer),
	)

	return models.AnswerResult{
		Answer:         strings.TrimSpace(answer),
		Sources:        buildSources(retrieval.Chunks),
		HasAnswer:      true,
		RetrievalStats: stats,
	}, nil
}

// buildPrompt assembles the context blocks and grounding instructions. Each
// chunk is labeled with its document, page, and similarity so the model can
// cite and weigh them.
func buildPrompt(question string, chunks []models.RetrievedChunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[Source %d: %s, Page %d, Similarity: %.2f]\n%s\n\n",
			i+1, chunk.Metadata.Document, chunk.Metadata.Page, chunk.Similarity, chunk.Content)
	}

	return fmt.Sprintf(`Based on the following context from documents, answer the question.

Context:
%s
Question: %s

Instructions:
1. Use the context that is relevant to the question, even when its similarity is low.
2. Ignore context that does not relate to the question.
3. Synthesize a structured answer when the information spans several sources.
4. Cite the source document and page for every fact you use.
5. If none of the context answers the question, say so plainly instead of guessing.

Answer:`, b.String(), question)
}

func buildSources(chunks []models.RetrievedChunk) []models.Source {
	sources := make([]models.Source, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, models.Source{
			Document:   chunk.Metadata.Document,
			Page:       chunk.Metadata.Page,
			Similarity: chunk.Similarity,
			Preview:    preview(chunk.Content),
		})
	}
	return sources
}

func preview(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= previewLimit {
		return string(runes)
	}
	return string(runes[:previewLimit]) + "..."
}
