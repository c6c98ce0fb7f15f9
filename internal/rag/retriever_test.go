package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/docqa/pkg/models"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vector, s.err
}

type stubSearcher struct {
	chunks []models.RetrievedChunk
	err    error
	topK   int
}

func (s *stubSearcher) Query(_ context.Context, _ []float32, topK int, _ map[string]string) ([]models.RetrievedChunk, error) {
	s.topK = topK
	if s.err != nil {
		return nil, s.err
	}
	if len(s.chunks) > topK {
		return s.chunks[:topK], nil
	}
	return s.chunks, nil
}

func retrieved(id string, similarity float32) models.RetrievedChunk {
	return models.RetrievedChunk{
		Content:    "content " + id,
		Metadata:   models.RetrievedMetadata{Document: "a.pdf", Page: 1, ChunkID: id},
		Distance:   1 - similarity,
		Similarity: similarity,
	}
}

func TestRetrieveFiltersByThreshold(t *testing.T) {
	searcher := &stubSearcher{chunks: []models.RetrievedChunk{
		retrieved("high", 0.95),
		retrieved("borderline", 0.7),
		retrieved("low", 0.4),
	}}
	r := NewRetriever(&stubEmbedder{vector: []float32{1}}, searcher, WithThreshold(0.7))

	result, err := r.Retrieve(context.Background(), "question", 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if result.TotalRetrieved != 3 {
		t.Errorf("TotalRetrieved = %d, want 3", result.TotalRetrieved)
	}
	if result.TotalRelevant != 2 {
		t.Errorf("TotalRelevant = %d, want 2 (threshold is inclusive)", result.TotalRelevant)
	}
	if !result.HasRelevantContext {
		t.Error("HasRelevantContext = false")
	}
	if result.SimilarityThreshold != 0.7 {
		t.Errorf("SimilarityThreshold = %v, want 0.7", result.SimilarityThreshold)
	}

	// Rank order of the survivors is preserved.
	if result.Chunks[0].Metadata.ChunkID != "high" || result.Chunks[1].Metadata.ChunkID != "borderline" {
		t.Errorf("chunk order = [%s %s]", result.Chunks[0].Metadata.ChunkID, result.Chunks[1].Metadata.ChunkID)
	}
}

func TestRetrieveNothingRelevant(t *testing.T) {
	searcher := &stubSearcher{chunks: []models.RetrievedChunk{retrieved("low", 0.2)}}
	r := NewRetriever(&stubEmbedder{vector: []float32{1}}, searcher)

	result, err := r.Retrieve(context.Background(), "question", 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.HasRelevantContext {
		t.Error("HasRelevantContext = true with nothing above threshold")
	}
	if result.TotalRetrieved != 1 || result.TotalRelevant != 0 {
		t.Errorf("stats = %d/%d, want 1/0", result.TotalRetrieved, result.TotalRelevant)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := NewRetriever(&stubEmbedder{vector: []float32{1}}, &stubSearcher{})

	result, err := r.Retrieve(context.Background(), "question", 0)
	if err != nil {
		t.Fatalf("Retrieve() on empty index error = %v, want graceful empty result", err)
	}
	if result.HasRelevantContext || result.TotalRetrieved != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestRetrievePassesTopK(t *testing.T) {
	searcher := &stubSearcher{}
	r := NewRetriever(&stubEmbedder{vector: []float32{1}}, searcher, WithTopK(7))

	if _, err := r.Retrieve(context.Background(), "question", 0); err != nil {
		t.Fatal(err)
	}
	if searcher.topK != 7 {
		t.Errorf("searcher received topK = %d, want the configured 7", searcher.topK)
	}

	// A positive per-call value overrides the configured default.
	if _, err := r.Retrieve(context.Background(), "question", 12); err != nil {
		t.Fatal(err)
	}
	if searcher.topK != 12 {
		t.Errorf("searcher received topK = %d, want the per-call 12", searcher.topK)
	}
}

func TestRetrieveRejectsEmptyQuestion(t *testing.T) {
	r := NewRetriever(&stubEmbedder{vector: []float32{1}}, &stubSearcher{})
	if _, err := r.Retrieve(context.Background(), "", 0); err == nil {
		t.Fatal("Retrieve(\"\") should fail")
	}
}

func TestRetrievePropagatesEmbedError(t *testing.T) {
	wantErr := errors.New("embed down")
	r := NewRetriever(&stubEmbedder{err: wantErr}, &stubSearcher{})

	if _, err := r.Retrieve(context.Background(), "question", 0); !errors.Is(err, wantErr) {
		t.Fatalf("Retrieve() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestRetrievePropagatesQueryError(t *testing.T) {
	wantErr := errors.New("store down")
	r := NewRetriever(&stubEmbedder{vector: []float32{1}}, &stubSearcher{err: wantErr})

	if _, err := r.Retrieve(context.Background(), "question", 0); !errors.Is(err, wantErr) {
		t.Fatalf("Retrieve() error = %v, want wrapped %v", err, wantErr)
	}
}
