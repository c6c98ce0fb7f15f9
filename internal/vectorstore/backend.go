// Package vectorstore persists chunk embeddings and answers nearest-neighbor
// queries. The adapter logic (batching, pagination, throttle retries,
// lifecycle polling) is backend-agnostic; concrete index backends implement
// the Backend interface.
package vectorstore

import (
	"context"
	"errors"
)

// Metadata field names stored alongside each vector. Page and chunk index
// are string-encoded because index backends flatten metadata to strings.
const (
	MetaContent    = "content"
	MetaDocument   = "document"
	MetaPage       = "page"
	MetaChunkIndex = "chunk_index"
	MetaSourceType = "source_type"
)

// Classification sentinels. Backends wrap their transport errors with these
// so the adapter can react uniformly.
var (
	// ErrThrottled marks a backend rate-limit rejection.
	ErrThrottled = errors.New("backend throttled")

	// ErrNotFound marks a missing index, bucket, or key.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists marks an idempotent-create conflict.
	ErrAlreadyExists = errors.New("already exists")
)

// Item is one (key, vector, metadata) tuple submitted for storage.
type Item struct {
	Key      string
	Vector   []float32
	Metadata map[string]string
}

// Match is one nearest-neighbor query result.
type Match struct {
	Key      string
	Distance float32
	Metadata map[string]string
}

// ListEntry is one element of a full enumeration.
type ListEntry struct {
	Key      string
	Metadata map[string]string
}

// ListResult is one page of a full enumeration. An empty NextToken means
// the enumeration is complete.
type ListResult struct {
	Entries   []ListEntry
	NextToken string
}

// IndexStatus models the backend's eventual-consistency contract for index
// creation. Backends that cannot report a status return StatusUnknown; the
// adapter treats Unknown after bounded polling as soft success.
type IndexStatus int

const (
	StatusUnknown IndexStatus = iota
	StatusPending
	StatusActive
)

func (s IndexStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	default:
		return "unknown"
	}
}

// Backend is the narrow capability contract a vector index must provide.
// All bulk operations receive at most the batch limit configured on the
// Store.
type Backend interface {
	// Upsert writes a batch of vectors.
	Upsert(ctx context.Context, items []Item) error

	// Query returns the k nearest neighbors ordered by ascending distance.
	// filter, when non-nil, restricts results to exact metadata matches.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Match, error)

	// ListPage returns one enumeration page starting at token ("" for the
	// first page).
	ListPage(ctx context.Context, token string, maxResults int) (ListResult, error)

	// Delete removes vectors by key. Unknown keys are not an error.
	Delete(ctx context.Context, keys []string) error

	// CreateBucket creates the backing container. Returns ErrAlreadyExists
	// when it is already present.
	CreateBucket(ctx context.Context) error

	// CreateIndex creates the index with the given dimension and distance
	// metric. Returns ErrAlreadyExists when it is already present.
	CreateIndex(ctx context.Context, dimension int, metric string) error

	// DescribeIndex reports the index status. Returns ErrNotFound when the
	// index does not exist.
	DescribeIndex(ctx context.Context) (IndexStatus, error)

	// DeleteIndex removes the index. Returns ErrNotFound when absent.
	DeleteIndex(ctx context.Context) error

	// DeleteBucket removes the container. Returns ErrNotFound when absent.
	DeleteBucket(ctx context.Context) error

	// Name identifies the backend for log and error messages.
	Name() string
}
