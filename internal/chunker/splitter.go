// Package chunker splits extracted document text into overlapping chunks
// sized for embedding and retrieval.
package chunker

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/docqa/pkg/models"
)

// DefaultSeparators is the separator hierarchy, tried largest semantic unit
// first: paragraph break, line break, space, then raw characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter implements recursive character splitting: text is divided on the
// coarsest separator present, pieces still longer than the chunk size are
// recursively subdivided with the next separator, and small pieces are
// merged back up to the chunk size with a configurable overlap carried
// between consecutive chunks.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New creates a Splitter. chunkSize must be positive and chunkOverlap must
// satisfy 0 <= chunkOverlap < chunkSize.
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}, nil
}

// WithSeparators overrides the separator hierarchy. The list must end with
// "" so every oversized piece can eventually be subdivided.
func (s *Splitter) WithSeparators(seps []string) *Splitter {
	s.separators = seps
	return s
}

// Split chunks every document independently and attaches metadata.
//
// ChunkIndex restarts at 0 for each document; the chunk ID sequence is
// shared across all documents in the call, so IDs never collide within one
// ingestion batch. Whitespace-only chunks are never emitted. Pure
// transform: no side effects.
func (s *Splitter) Split(docs []models.Document) []models.Chunk {
	var all []models.Chunk
	globalSeq := 0

	for _, doc := range docs {
		pieces := s.splitText(doc.Text, s.separators)

		for i, content := range pieces {
			all = append(all, models.Chunk{
				Content: content,
				Metadata: models.ChunkMetadata{
					Document:    doc.Metadata.Document,
					Page:        doc.Metadata.Page,
					SourceType:  doc.Metadata.SourceType,
					ChunkID:     fmt.Sprintf("%s_chunk_%d", doc.Metadata.Document, globalSeq),
					ChunkIndex:  i,
					TotalChunks: len(pieces),
					ChunkSize:   len(content),
				},
			})
			globalSeq++
		}
	}

	return all
}

// splitText recursively splits text using the separator hierarchy.
func (s *Splitter) splitText(text string, separators []string) []string {
	if text == "" {
		return nil
	}

	// Pick the first separator present in the text; "" always matches.
	separator := ""
	var next []string
	for i, sep := range separators {
		if sep == "" {
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	if separator == "" {
		return s.hardSplit(text)
	}

	splits := strings.Split(text, separator)

	var final []string
	var good []string
	for _, piece := range splits {
		if len(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		// Oversized piece: flush what we have, then subdivide it with
		// the next finer separator.
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		final = append(final, s.splitText(piece, next)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}

	return final
}

// merge combines small pieces into chunks of at most chunkSize characters,
// retaining up to chunkOverlap trailing characters of each emitted chunk as
// the start of the next one.
func (s *Splitter) merge(splits []string, separator string) []string {
	sepLen := len(separator)

	var chunks []string
	var current []string
	total := 0

	for _, piece := range splits {
		pieceLen := len(piece)

		if len(current) > 0 && total+pieceLen+sepLen > s.chunkSize {
			chunks = appendChunk(chunks, strings.Join(current, separator))

			// Shed pieces from the front until the retained tail fits the
			// overlap budget and leaves room for the incoming piece.
			for total > s.chunkOverlap ||
				(total > 0 && total+pieceLen+sepLen > s.chunkSize) {
				total -= len(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}

		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += pieceLen
	}

	if len(current) > 0 {
		chunks = appendChunk(chunks, strings.Join(current, separator))
	}

	return chunks
}

// hardSplit cuts text with no usable separator into fixed windows, stepping
// by chunkSize-chunkOverlap so consecutive windows share the overlap.
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.chunkOverlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = appendChunk(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// appendChunk trims and drops whitespace-only chunks.
func appendChunk(chunks []string, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return chunks
	}
	return append(chunks, text)
}
