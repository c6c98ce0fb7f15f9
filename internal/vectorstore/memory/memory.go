// Package memory implements an in-process vector store backend. It exists
// for local runs and tests where no AWS account is available, and mirrors
// the remote backend's contract including its sentinel errors.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/haasonsaas/docqa/internal/vectorstore"
)

type record struct {
	vector   []float32
	metadata map[string]string
}

// Backend is a brute-force cosine store guarded by a mutex.
type Backend struct {
	mu        sync.RWMutex
	records   map[string]*record
	hasBucket bool
	hasIndex  bool
	dimension int
	pageSize  int
}

var _ vectorstore.Backend = (*Backend)(nil)

// New creates an empty backend with bucket and index already provisioned,
// which is the common case for tests.
func New() *Backend {
	return &Backend{
		records:   make(map[string]*record),
		hasBucket: true,
		hasIndex:  true,
	}
}

// NewUnprovisioned creates a backend whose bucket and index must be created
// before use.
func NewUnprovisioned() *Backend {
	return &Backend{records: make(map[string]*record)}
}

// Name identifies the backend.
func (b *Backend) Name() string { return "memory" }

// Upsert inserts or overwrites records by key.
func (b *Backend) Upsert(_ context.Context, items []vectorstore.Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasIndex {
		return vectorstore.ErrNotFound
	}
	for _, item := range items {
		metadata := make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			metadata[k] = v
		}
		vector := make([]float32, len(item.Vector))
		copy(vector, item.Vector)
		b.records[item.Key] = &record{vector: vector, metadata: metadata}
	}
	return nil
}

// Query scans every record and returns the k nearest by cosine distance.
func (b *Backend) Query(_ context.Context, vector []float32, k int, filter map[string]string) ([]vectorstore.Match, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.hasIndex {
		return nil, vectorstore.ErrNotFound
	}

	matches := make([]vectorstore.Match, 0, len(b.records))
	for key, rec := range b.records {
		if !matchesFilter(rec.metadata, filter) {
			continue
		}
		metadata := make(map[string]string, len(rec.metadata))
		for mk, mv := range rec.metadata {
			metadata[mk] = mv
		}
		matches = append(matches, vectorstore.Match{
			Key:      key,
			Distance: cosineDistance(vector, rec.vector),
			Metadata: metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Key < matches[j].Key
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// ListPage walks keys in sorted order. The continuation token is the offset
// into that ordering, which stays stable across pages as long as no writes
// happen mid-enumeration.
func (b *Backend) ListPage(_ context.Context, token string, maxResults int) (vectorstore.ListResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.hasIndex {
		return vectorstore.ListResult{}, vectorstore.ErrNotFound
	}

	keys := make([]string, 0, len(b.records))
	for key := range b.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	offset := 0
	if token != "" {
		parsed, err := strconv.Atoi(token)
		if err != nil || parsed < 0 {
			return vectorstore.ListResult{}, fmt.Errorf("invalid continuation token %q", token)
		}
		offset = parsed
	}
	if offset >= len(keys) {
		return vectorstore.ListResult{}, nil
	}

	limit := maxResults
	if b.pageSize > 0 && b.pageSize < limit {
		limit = b.pageSize
	}
	end := offset + limit
	if end > len(keys) {
		end = len(keys)
	}

	entries := make([]vectorstore.ListEntry, 0, end-offset)
	for _, key := range keys[offset:end] {
		rec := b.records[key]
		metadata := make(map[string]string, len(rec.metadata))
		for mk, mv := range rec.metadata {
			metadata[mk] = mv
		}
		entries = append(entries, vectorstore.ListEntry{Key: key, Metadata: metadata})
	}

	result := vectorstore.ListResult{Entries: entries}
	if end < len(keys) {
		result.NextToken = strconv.Itoa(end)
	}
	return result, nil
}

// Delete removes records by key. Unknown keys are ignored.
func (b *Backend) Delete(_ context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasIndex {
		return vectorstore.ErrNotFound
	}
	for _, key := range keys {
		delete(b.records, key)
	}
	return nil
}

// CreateBucket provisions the bucket.
func (b *Backend) CreateBucket(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hasBucket {
		return vectorstore.ErrAlreadyExists
	}
	b.hasBucket = true
	return nil
}

// CreateIndex provisions the index inside the bucket.
func (b *Backend) CreateIndex(_ context.Context, dimension int, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasBucket {
		return vectorstore.ErrNotFound
	}
	if b.hasIndex {
		return vectorstore.ErrAlreadyExists
	}
	b.hasIndex = true
	b.dimension = dimension
	return nil
}

// DescribeIndex reports the index as active once created.
func (b *Backend) DescribeIndex(_ context.Context) (vectorstore.IndexStatus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.hasIndex {
		return vectorstore.StatusUnknown, vectorstore.ErrNotFound
	}
	return vectorstore.StatusActive, nil
}

// DeleteIndex drops the index and every record in it.
func (b *Backend) DeleteIndex(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasIndex {
		return vectorstore.ErrNotFound
	}
	b.hasIndex = false
	b.records = make(map[string]*record)
	return nil
}

// DeleteBucket drops the bucket. The index must be deleted first.
func (b *Backend) DeleteBucket(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasBucket {
		return vectorstore.ErrNotFound
	}
	if b.hasIndex {
		return fmt.Errorf("%w: bucket still contains an index", vectorstore.ErrAlreadyExists)
	}
	b.hasBucket = false
	return nil
}

// Len reports the number of stored records.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// SetPageSize caps enumeration pages below the caller's maxResults, which
// tests use to force multi-page listings.
func (b *Backend) SetPageSize(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pageSize = n
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return float32(1 - similarity)
}
