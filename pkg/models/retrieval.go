package models

// EmbeddingResult is one positional slot of a batch embedding call.
// Results stay aligned 1:1 with the input sequence; a failed slot carries
// the error instead of a vector and is never reordered or dropped.
type EmbeddingResult struct {
	// Vector is the embedding, nil when the slot failed.
	Vector []float32 `json:"vector,omitempty"`

	// Err records why this slot failed, nil on success.
	Err error `json:"-"`
}

// Failed reports whether this slot holds a failure marker instead of a vector.
func (r EmbeddingResult) Failed() bool {
	return r.Err != nil || r.Vector == nil
}

// RetrievedChunk is a chunk returned by a similarity query.
type RetrievedChunk struct {
	// Content is the stored chunk text.
	Content string `json:"content"`

	// Metadata is the provenance recorded at ingestion time.
	Metadata RetrievedMetadata `json:"metadata"`

	// Distance is the raw distance reported by the vector index.
	Distance float32 `json:"distance"`

	// Similarity is 1 - Distance.
	Similarity float32 `json:"similarity"`
}

// RetrievedMetadata is the chunk provenance read back from the vector store.
type RetrievedMetadata struct {
	Document   string     `json:"document"`
	Page       int        `json:"page"`
	ChunkIndex int        `json:"chunk_index"`
	SourceType SourceType `json:"source_type"`
	ChunkID    string     `json:"chunk_id"`
}

// RetrievalResult is the outcome of retrieving context for one question.
type RetrievalResult struct {
	// Chunks are the results above the similarity threshold, in rank order.
	Chunks []RetrievedChunk `json:"chunks"`

	// TotalRetrieved is the number of results before threshold filtering.
	TotalRetrieved int `json:"total_retrieved"`

	// TotalRelevant is the number of results at or above the threshold.
	TotalRelevant int `json:"total_relevant"`

	// HasRelevantContext is true when at least one chunk passed the filter.
	HasRelevantContext bool `json:"has_relevant_context"`

	// SimilarityThreshold is the cutoff the filter applied.
	SimilarityThreshold float32 `json:"similarity_threshold"`
}

// Source attributes part of an answer to a stored chunk.
type Source struct {
	// Document is the source document's display name.
	Document string `json:"document"`

	// Page is the 1-based page number.
	Page int `json:"page"`

	// Similarity is the retrieval similarity of the cited chunk.
	Similarity float32 `json:"similarity"`

	// Preview is the first 200 characters of the chunk content.
	Preview string `json:"preview"`
}

// RetrievalStats summarizes the retrieval phase of one question.
type RetrievalStats struct {
	TotalRetrieved      int     `json:"total_retrieved"`
	TotalRelevant       int     `json:"total_relevant"`
	SimilarityThreshold float32 `json:"similarity_threshold"`
}

// AnswerResult is the final outcome of asking a question.
type AnswerResult struct {
	// Answer is the generated text, or the fixed no-context message.
	Answer string `json:"answer"`

	// Sources lists the chunks the answer was grounded on, in rank order.
	Sources []Source `json:"sources"`

	// HasAnswer is false when no relevant context was found and the
	// generative model was never invoked.
	HasAnswer bool `json:"has_answer"`

	// RetrievalStats reports how retrieval went for this question.
	RetrievalStats RetrievalStats `json:"retrieval_stats"`
}

// IngestResult reports per-stage counts for one document ingestion.
type IngestResult struct {
	// Document is the ingested document's display name.
	Document string `json:"document"`

	// Documents is the number of extracted text units (pages).
	Documents int `json:"documents"`

	// Chunks is the number of chunks produced.
	Chunks int `json:"chunks"`

	// Embedded is the number of chunks successfully embedded.
	Embedded int `json:"embedded"`

	// Failed is the number of chunks whose embedding failed.
	Failed int `json:"failed"`

	// Stored is the number of vectors persisted.
	Stored int `json:"stored"`

	// Batches is the number of write batches submitted.
	Batches int `json:"batches"`
}

// DocumentInfo summarizes one document currently present in the vector store.
type DocumentInfo struct {
	// Document is the display name.
	Document string `json:"document"`

	// SourceType is the original file format.
	SourceType SourceType `json:"source_type"`

	// ChunkCount is the number of stored chunks.
	ChunkCount int `json:"chunk_count"`

	// PageCount is the number of distinct pages with stored chunks.
	PageCount int `json:"page_count"`

	// Pages lists the distinct page numbers in ascending order.
	Pages []int `json:"pages"`
}
