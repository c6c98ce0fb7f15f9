package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/haasonsaas/docqa/internal/observability"
	"github.com/haasonsaas/docqa/pkg/models"
)

// Store is the vector store adapter: it validates input, filters failed
// embeddings, splits bulk work into backend-sized batches, retries once on
// throttling, and drives the full-enumeration pagination loop.
type Store struct {
	backend      Backend
	reporter     observability.Reporter
	batchSize    int
	throttleWait time.Duration
	pollAttempts int
	pollInterval time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBatchSize overrides the per-request batch limit (default 500).
func WithBatchSize(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithThrottleWait overrides the wait before the single retry of a
// throttled batch (default 2s).
func WithThrottleWait(d time.Duration) StoreOption {
	return func(s *Store) { s.throttleWait = d }
}

// WithReporter sets where progress and soft failures are surfaced.
func WithReporter(r observability.Reporter) StoreOption {
	return func(s *Store) { s.reporter = r }
}

// WithIndexPolling overrides the index readiness polling policy.
func WithIndexPolling(attempts int, interval time.Duration) StoreOption {
	return func(s *Store) {
		s.pollAttempts = attempts
		s.pollInterval = interval
	}
}

// New creates a Store over a backend.
func New(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:      backend,
		reporter:     observability.NewNop(),
		batchSize:    500,
		throttleWait: 2 * time.Second,
		pollAttempts: 15,
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutResult reports the outcome of a Put.
type PutResult struct {
	// TotalStored is the number of vectors written.
	TotalStored int `json:"total_stored"`

	// Batches is the number of write requests submitted.
	Batches int `json:"batches"`
}

// DeleteResult reports the outcome of a delete operation.
type DeleteResult struct {
	// DeletedCount is the number of keys submitted for deletion.
	DeletedCount int `json:"deleted_count"`
}

// Put stores chunks with their embeddings.
//
// chunks and embeddings must have equal length (positional alignment from
// the embedding batch). Positions holding a failure marker are excluded
// before storage: a chunk that failed to embed is never written with a
// placeholder vector. Writes go out in batches; a throttled batch waits
// once and retries before the failure propagates.
func (s *Store) Put(ctx context.Context, chunks []models.Chunk, embeddings []models.EmbeddingResult) (PutResult, error) {
	if len(chunks) != len(embeddings) {
		return PutResult{}, validationErrorf("chunks (%d) and embeddings (%d) must have same length", len(chunks), len(embeddings))
	}

	items := make([]Item, 0, len(chunks))
	for i, chunk := range chunks {
		if embeddings[i].Failed() {
			continue
		}
		items = append(items, Item{
			Key:    chunk.Metadata.ChunkID,
			Vector: embeddings[i].Vector,
			Metadata: map[string]string{
				MetaContent:    chunk.Content,
				MetaDocument:   chunk.Metadata.Document,
				MetaPage:       strconv.Itoa(chunk.Metadata.Page),
				MetaChunkIndex: strconv.Itoa(chunk.Metadata.ChunkIndex),
				MetaSourceType: string(chunk.Metadata.SourceType),
			},
		})
	}

	if len(items) == 0 {
		return PutResult{}, validationErrorf("no valid embeddings to store")
	}

	batches := 0
	totalBatches := (len(items) + s.batchSize - 1) / s.batchSize

	for start := 0; start < len(items); start += s.batchSize {
		end := start + s.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		batches++

		if totalBatches > 1 {
			s.reporter.Info(ctx, "uploading vectors",
				"batch", batches,
				"total_batches", totalBatches,
			)
		}

		if err := s.withThrottleRetry(ctx, "put vectors", func() error {
			return s.backend.Upsert(ctx, batch)
		}); err != nil {
			return PutResult{}, fmt.Errorf("put vectors: %w", err)
		}
	}

	return PutResult{TotalStored: len(items), Batches: batches}, nil
}

// Query returns the topK nearest neighbors ordered by ascending distance,
// converting distance to similarity (1 - distance) per result.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]models.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, validationErrorf("top_k must be positive, got %d", topK)
	}

	matches, err := s.backend.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	results := make([]models.RetrievedChunk, 0, len(matches))
	for _, match := range matches {
		results = append(results, matchToChunk(match))
	}
	return results, nil
}

// ListAll enumerates the complete index via the backend's pagination,
// looping until no continuation token remains.
func (s *Store) ListAll(ctx context.Context) ([]ListEntry, error) {
	var entries []ListEntry
	token := ""
	pages := 0

	for {
		page, err := s.backend.ListPage(ctx, token, s.batchSize)
		if err != nil {
			return nil, fmt.Errorf("list vectors: %w", err)
		}
		entries = append(entries, page.Entries...)
		pages++

		if page.NextToken == "" {
			break
		}
		token = page.NextToken

		if pages%5 == 0 {
			s.reporter.Info(ctx, "listing vectors", "fetched", len(entries))
		}
	}

	return entries, nil
}

// DeleteByKeys removes vectors by key in batches, retrying each batch once
// on throttling.
func (s *Store) DeleteByKeys(ctx context.Context, keys []string) (DeleteResult, error) {
	if len(keys) == 0 {
		return DeleteResult{}, nil
	}

	deleted := 0
	totalBatches := (len(keys) + s.batchSize - 1) / s.batchSize
	batch := 0

	for start := 0; start < len(keys); start += s.batchSize {
		end := start + s.batchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch++

		if totalBatches > 1 {
			s.reporter.Info(ctx, "deleting vectors",
				"batch", batch,
				"total_batches", totalBatches,
			)
		}

		if err := s.withThrottleRetry(ctx, "delete vectors", func() error {
			return s.backend.Delete(ctx, keys[start:end])
		}); err != nil {
			return DeleteResult{DeletedCount: deleted}, fmt.Errorf("delete vectors: %w", err)
		}
		deleted += end - start
	}

	return DeleteResult{DeletedCount: deleted}, nil
}

// DeleteByDocument removes every vector whose document metadata exactly
// matches name. Implemented as list-then-filter client-side, which is
// O(index size) per call: acceptable at this system's scale.
func (s *Store) DeleteByDocument(ctx context.Context, name string) (DeleteResult, error) {
	entries, err := s.ListAll(ctx)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete document %q: %w", name, err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.Metadata[MetaDocument] == name {
			keys = append(keys, entry.Key)
		}
	}

	if len(keys) == 0 {
		return DeleteResult{}, nil
	}

	result, err := s.DeleteByKeys(ctx, keys)
	if err != nil {
		return result, fmt.Errorf("delete document %q: %w", name, err)
	}
	return result, nil
}

// DeleteAll removes every vector in the index.
func (s *Store) DeleteAll(ctx context.Context) (DeleteResult, error) {
	entries, err := s.ListAll(ctx)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete all vectors: %w", err)
	}

	keys := make([]string, len(entries))
	for i, entry := range entries {
		keys[i] = entry.Key
	}

	return s.DeleteByKeys(ctx, keys)
}

// ListDocuments groups the full enumeration by document name and reports
// per-document chunk and page statistics, sorted by document name.
func (s *Store) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	entries, err := s.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	type docAgg struct {
		sourceType string
		chunkCount int
		pages      map[int]struct{}
	}
	byName := make(map[string]*docAgg)

	for _, entry := range entries {
		name := entry.Metadata[MetaDocument]
		if name == "" {
			name = "unknown"
		}
		agg := byName[name]
		if agg == nil {
			agg = &docAgg{
				sourceType: entry.Metadata[MetaSourceType],
				pages:      make(map[int]struct{}),
			}
			byName[name] = agg
		}
		agg.chunkCount++
		if page, err := strconv.Atoi(entry.Metadata[MetaPage]); err == nil {
			agg.pages[page] = struct{}{}
		}
	}

	docs := make([]models.DocumentInfo, 0, len(byName))
	for name, agg := range byName {
		pages := make([]int, 0, len(agg.pages))
		for page := range agg.pages {
			pages = append(pages, page)
		}
		sort.Ints(pages)

		docs = append(docs, models.DocumentInfo{
			Document:   name,
			SourceType: models.SourceType(agg.sourceType),
			ChunkCount: agg.chunkCount,
			PageCount:  len(pages),
			Pages:      pages,
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Document < docs[j].Document })
	return docs, nil
}

// EnsureIndex creates the backing container and index if absent, treating
// "already exists" as success, then polls the index status until active or
// the attempt budget runs out. Exhaustion is soft success: a warning is
// logged and the caller proceeds optimistically.
func (s *Store) EnsureIndex(ctx context.Context, dimension int, metric string) error {
	if err := s.backend.CreateBucket(ctx); err != nil && !errors.Is(err, ErrAlreadyExists) {
		return fmt.Errorf("create vector bucket: %w", err)
	}

	created := true
	if err := s.backend.CreateIndex(ctx, dimension, metric); err != nil {
		if !errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("create vector index: %w", err)
		}
		created = false
	}
	if !created {
		return nil
	}

	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		status, err := s.backend.DescribeIndex(ctx)
		if err == nil && status == StatusActive {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}

	s.reporter.Warn(ctx, "index status unknown after polling, proceeding",
		"attempts", s.pollAttempts,
	)
	return nil
}

// DropIndex deletes the index. The bool reports whether anything was
// deleted; an absent index is a non-error terminal state.
func (s *Store) DropIndex(ctx context.Context) (bool, error) {
	if err := s.backend.DeleteIndex(ctx); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete vector index: %w", err)
	}
	return true, nil
}

// DropBucket deletes the backing container. The bool reports whether
// anything was deleted.
func (s *Store) DropBucket(ctx context.Context) (bool, error) {
	if err := s.backend.DeleteBucket(ctx); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete vector bucket: %w", err)
	}
	return true, nil
}

// withThrottleRetry runs op, and on a throttling error waits once and
// retries before giving up.
func (s *Store) withThrottleRetry(ctx context.Context, operation string, op func() error) error {
	err := op()
	if err == nil || !errors.Is(err, ErrThrottled) {
		return err
	}

	s.reporter.Warn(ctx, "backend throttled, waiting before retry",
		"operation", operation,
		"wait", s.throttleWait.String(),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.throttleWait):
	}

	return op()
}

// matchToChunk converts a backend match to the retrieval model, decoding
// the string-encoded metadata fields.
func matchToChunk(match Match) models.RetrievedChunk {
	page, _ := strconv.Atoi(match.Metadata[MetaPage])
	if page == 0 {
		page = 1
	}
	chunkIndex, _ := strconv.Atoi(match.Metadata[MetaChunkIndex])

	return models.RetrievedChunk{
		Content: match.Metadata[MetaContent],
		Metadata: models.RetrievedMetadata{
			Document:   match.Metadata[MetaDocument],
			Page:       page,
			ChunkIndex: chunkIndex,
			SourceType: models.SourceType(match.Metadata[MetaSourceType]),
			ChunkID:    match.Key,
		},
		Distance:   match.Distance,
		Similarity: 1 - match.Distance,
	}
}
