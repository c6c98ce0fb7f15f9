// Package models defines the core data types for the document QA pipeline.
package models

// SourceType identifies the original file format of a document.
type SourceType string

const (
	SourceTypePDF  SourceType = "pdf"
	SourceTypeDOCX SourceType = "docx"
	SourceTypeTXT  SourceType = "txt"
)

// Document represents one unit of extracted text ready for chunking.
// Paginated formats produce one Document per page; flat formats produce
// a single Document covering the whole file.
type Document struct {
	// Text is the extracted plain text.
	Text string `json:"text"`

	// Metadata identifies the document and its position in the source file.
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata describes where a Document's text came from.
type DocumentMetadata struct {
	// Document is the unique display name, typically the filename.
	Document string `json:"document"`

	// Page is the 1-based page number within the source file.
	Page int `json:"page"`

	// TotalPages is the page count of the source file.
	TotalPages int `json:"total_pages"`

	// SourceType is the original file format.
	SourceType SourceType `json:"source_type"`
}

// Chunk is the atomic unit of storage and retrieval: a bounded slice of a
// document's text plus enough metadata to attribute it back to its source.
type Chunk struct {
	// Content is the chunk text. Never empty or whitespace-only.
	Content string `json:"content"`

	// Metadata carries identity and provenance for the chunk.
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata identifies a chunk and its source document.
type ChunkMetadata struct {
	// Document is the parent document's display name.
	Document string `json:"document"`

	// Page is the 1-based page the chunk was cut from.
	Page int `json:"page"`

	// SourceType is the parent document's file format.
	SourceType SourceType `json:"source_type"`

	// ChunkID is the globally unique key used in the vector store,
	// derived as "<document>_chunk_<global_sequence>".
	ChunkID string `json:"chunk_id"`

	// ChunkIndex is the 0-based position within the source document.
	ChunkIndex int `json:"chunk_index"`

	// TotalChunks is the number of chunks the source document produced.
	TotalChunks int `json:"total_chunks"`

	// ChunkSize is len(Content) at chunking time.
	ChunkSize int `json:"chunk_size"`
}
