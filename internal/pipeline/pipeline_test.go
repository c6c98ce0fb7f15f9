package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/docqa/internal/chunker"
	"github.com/haasonsaas/docqa/internal/embeddings"
	"github.com/haasonsaas/docqa/internal/observability"
	"github.com/haasonsaas/docqa/internal/rag"
	"github.com/haasonsaas/docqa/internal/retry"
	"github.com/haasonsaas/docqa/internal/vectorstore"
	"github.com/haasonsaas/docqa/internal/vectorstore/memory"
)

// keywordProvider embeds text onto two axes by keyword presence, so
// retrieval quality is fully predictable.
type keywordProvider struct {
	failOn string
}

func (p *keywordProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if p.failOn != "" && strings.Contains(text, p.failOn) {
		return nil, errors.New("simulated embedding outage")
	}
	vector := []float32{0, 0}
	if strings.Contains(text, "solar") {
		vector[0] = 1
	}
	if strings.Contains(text, "lunar") {
		vector[1] = 1
	}
	if vector[0] == 0 && vector[1] == 0 {
		vector = []float32{0.5, 0.5}
	}
	return vector, nil
}

func (p *keywordProvider) Name() string   { return "keyword" }
func (p *keywordProvider) Dimension() int { return 2 }

// echoGenerator answers with a fixed string and records the prompt.
type echoGenerator struct {
	prompt string
}

func (g *echoGenerator) Generate(_ context.Context, req rag.GenerationRequest) (string, error) {
	g.prompt = req.Prompt
	return "Grounded answer.", nil
}

func (g *echoGenerator) Name() string { return "echo" }

func newTestPipeline(t *testing.T, provider embeddings.Provider, gen rag.Generator) (*Pipeline, *vectorstore.Store) {
	t.Helper()

	splitter, err := chunker.New(60, 0)
	if err != nil {
		t.Fatal(err)
	}

	client := embeddings.NewClient(provider,
		embeddings.WithRequestsPerSecond(0),
		embeddings.WithRetry(retry.Config{MaxAttempts: 2, InitialDelay: time.Microsecond, MaxDelay: time.Millisecond}),
	)
	store := vectorstore.New(memory.New())

	retriever := rag.NewRetriever(client, store, rag.WithTopK(3), rag.WithThreshold(0.7))
	synthesizer := rag.NewSynthesizer(gen)

	p := New(splitter, client, store, retriever, synthesizer,
		WithMetrics(observability.NewMetricsWith(prometheus.NewRegistry())),
	)
	return p, store
}

const corpus = "The solar array produced record output in June.\n\n" +
	"The lunar schedule slipped by two weeks."

func TestIngestThenAsk(t *testing.T) {
	gen := &echoGenerator{}
	p, _ := newTestPipeline(t, &keywordProvider{}, gen)
	ctx := context.Background()

	result, err := p.Ingest(ctx, []byte(corpus), "status.txt")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Chunks != 2 || result.Embedded != 2 || result.Stored != 2 {
		t.Fatalf("ingest result = %+v, want 2 chunks stored", result)
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}

	answer, err := p.Ask(ctx, "How is the solar array doing?", 0)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if !answer.HasAnswer {
		t.Fatal("HasAnswer = false, want grounded answer")
	}
	if answer.Answer != "Grounded answer." {
		t.Errorf("Answer = %q", answer.Answer)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("got %d sources, want only the solar chunk", len(answer.Sources))
	}
	if answer.Sources[0].Document != "status.txt" {
		t.Errorf("source document = %q", answer.Sources[0].Document)
	}
	if !strings.Contains(gen.prompt, "solar array") {
		t.Error("prompt does not contain the retrieved chunk")
	}
	if strings.Contains(gen.prompt, "lunar schedule") {
		t.Error("prompt contains the below-threshold chunk")
	}
	if answer.RetrievalStats.TotalRetrieved != 2 || answer.RetrievalStats.TotalRelevant != 1 {
		t.Errorf("stats = %+v", answer.RetrievalStats)
	}
	if answer.RetrievalStats.SimilarityThreshold != 0.7 {
		t.Errorf("stats threshold = %v, want 0.7", answer.RetrievalStats.SimilarityThreshold)
	}
}

func TestAskWithEmptyIndex(t *testing.T) {
	p, _ := newTestPipeline(t, &keywordProvider{}, &echoGenerator{})

	answer, err := p.Ask(context.Background(), "Anything stored?", 0)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.HasAnswer {
		t.Error("HasAnswer = true on an empty index")
	}
	if answer.Answer != rag.NoContextAnswer {
		t.Errorf("Answer = %q, want the fixed refusal", answer.Answer)
	}
}

func TestIngestSurvivesPartialEmbeddingFailure(t *testing.T) {
	p, store := newTestPipeline(t, &keywordProvider{failOn: "lunar"}, &echoGenerator{})
	ctx := context.Background()

	result, err := p.Ingest(ctx, []byte(corpus), "status.txt")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Chunks != 2 || result.Embedded != 1 || result.Failed != 1 {
		t.Fatalf("ingest result = %+v, want one failure isolated", result)
	}
	if result.Stored != 1 {
		t.Errorf("Stored = %d, failed chunk must not be written", result.Stored)
	}

	entries, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("index holds %d vectors, want 1", len(entries))
	}
}

func TestIngestRejectsUnsupportedFormat(t *testing.T) {
	p, _ := newTestPipeline(t, &keywordProvider{}, &echoGenerator{})

	if _, err := p.Ingest(context.Background(), []byte("x"), "image.png"); err == nil {
		t.Fatal("Ingest() of unsupported format should fail")
	}
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	p, _ := newTestPipeline(t, &keywordProvider{}, &echoGenerator{})

	if _, err := p.Ingest(context.Background(), []byte("   \n\n  "), "blank.txt"); err == nil {
		t.Fatal("Ingest() of whitespace-only document should fail")
	}
}

func TestIngestThenDeleteDocument(t *testing.T) {
	p, store := newTestPipeline(t, &keywordProvider{}, &echoGenerator{})
	ctx := context.Background()

	if _, err := p.Ingest(ctx, []byte(corpus), "status.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Ingest(ctx, []byte("The solar budget is unchanged."), "budget.txt"); err != nil {
		t.Fatal(err)
	}

	deleted, err := store.DeleteByDocument(ctx, "status.txt")
	if err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	if deleted.DeletedCount != 2 {
		t.Errorf("DeletedCount = %d, want 2", deleted.DeletedCount)
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Document != "budget.txt" {
		t.Errorf("remaining documents = %+v, want only budget.txt", docs)
	}
}
