// Package s3vectors implements the vector store backend on AWS S3 Vectors.
package s3vectors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors/document"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors/types"
	"github.com/aws/smithy-go"

	"github.com/haasonsaas/docqa/internal/vectorstore"
)

// Backend stores vectors in one index of one S3 vector bucket.
type Backend struct {
	client *s3vectors.Client
	bucket string
	index  string
}

var _ vectorstore.Backend = (*Backend)(nil)

// New creates a backend bound to a bucket and index name.
func New(client *s3vectors.Client, bucket, index string) *Backend {
	return &Backend{client: client, bucket: bucket, index: index}
}

// NewFromConfig creates the backend with an S3 Vectors client built from an
// AWS config.
func NewFromConfig(awsCfg aws.Config, bucket, index string) *Backend {
	return New(s3vectors.NewFromConfig(awsCfg), bucket, index)
}

// Name identifies the backend.
func (b *Backend) Name() string { return "s3vectors" }

// Upsert writes a batch of vectors via PutVectors.
func (b *Backend) Upsert(ctx context.Context, items []vectorstore.Item) error {
	vectors := make([]types.PutInputVector, len(items))
	for i, item := range items {
		metadata := make(map[string]any, len(item.Metadata))
		for k, v := range item.Metadata {
			metadata[k] = v
		}
		vectors[i] = types.PutInputVector{
			Key:      aws.String(item.Key),
			Data:     &types.VectorDataMemberFloat32{Value: item.Vector},
			Metadata: document.NewLazyDocument(metadata),
		}
	}

	_, err := b.client.PutVectors(ctx, &s3vectors.PutVectorsInput{
		VectorBucketName: aws.String(b.bucket),
		IndexName:        aws.String(b.index),
		Vectors:          vectors,
	})
	return classify(err)
}

// Query runs a nearest-neighbor search via QueryVectors.
func (b *Backend) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]vectorstore.Match, error) {
	input := &s3vectors.QueryVectorsInput{
		VectorBucketName: aws.String(b.bucket),
		IndexName:        aws.String(b.index),
		QueryVector:      &types.VectorDataMemberFloat32{Value: vector},
		TopK:             aws.Int32(int32(k)), // #nosec G115 -- top_k is validated small
		ReturnMetadata:   true,
		ReturnDistance:   true,
	}
	if len(filter) > 0 {
		conditions := make(map[string]any, len(filter))
		for key, value := range filter {
			conditions[key] = value
		}
		input.Filter = document.NewLazyDocument(conditions)
	}

	out, err := b.client.QueryVectors(ctx, input)
	if err != nil {
		return nil, classify(err)
	}

	matches := make([]vectorstore.Match, 0, len(out.Vectors))
	for _, v := range out.Vectors {
		matches = append(matches, vectorstore.Match{
			Key:      aws.ToString(v.Key),
			Distance: aws.ToFloat32(v.Distance),
			Metadata: decodeMetadata(v.Metadata),
		})
	}
	return matches, nil
}

// ListPage fetches one enumeration page via ListVectors.
func (b *Backend) ListPage(ctx context.Context, token string, maxResults int) (vectorstore.ListResult, error) {
	input := &s3vectors.ListVectorsInput{
		VectorBucketName: aws.String(b.bucket),
		IndexName:        aws.String(b.index),
		MaxResults:       aws.Int32(int32(maxResults)), // #nosec G115 -- batch size is bounded
		ReturnMetadata:   true,
	}
	if token != "" {
		input.NextToken = aws.String(token)
	}

	out, err := b.client.ListVectors(ctx, input)
	if err != nil {
		return vectorstore.ListResult{}, classify(err)
	}

	entries := make([]vectorstore.ListEntry, 0, len(out.Vectors))
	for _, v := range out.Vectors {
		entries = append(entries, vectorstore.ListEntry{
			Key:      aws.ToString(v.Key),
			Metadata: decodeMetadata(v.Metadata),
		})
	}

	return vectorstore.ListResult{
		Entries:   entries,
		NextToken: aws.ToString(out.NextToken),
	}, nil
}

// Delete removes vectors by key via DeleteVectors.
func (b *Backend) Delete(ctx context.Context, keys []string) error {
	_, err := b.client.DeleteVectors(ctx, &s3vectors.DeleteVectorsInput{
		VectorBucketName: aws.String(b.bucket),
		IndexName:        aws.String(b.index),
		Keys:             keys,
	})
	return classify(err)
}

// CreateBucket creates the vector bucket.
func (b *Backend) CreateBucket(ctx context.Context) error {
	_, err := b.client.CreateVectorBucket(ctx, &s3vectors.CreateVectorBucketInput{
		VectorBucketName: aws.String(b.bucket),
	})
	return classify(err)
}

// CreateIndex creates the vector index with float32 data.
func (b *Backend) CreateIndex(ctx context.Context, dimension int, metric string) error {
	_, err := b.client.CreateIndex(ctx, &s3vectors.CreateIndexInput{
		VectorBucketName: aws.String(b.bucket),
		IndexName:        aws.String(b.index),
		DataType:         types.DataTypeFloat32,
		Dimension:        aws.Int32(int32(dimension)), // #nosec G115 -- dimension is a small constant
		DistanceMetric:   distanceMetric(metric),
	})
	return classify(err)
}

// DescribeIndex reports index readiness. S3 Vectors is strongly consistent
// and exposes no status field, so a successful describe means active.
func (b *Backend) DescribeIndex(ctx context.Context) (vectorstore.IndexStatus, error) {
	_, err := b.client.GetIndex(ctx, &s3vectors.GetIndexInput{
		VectorBucketName: aws.String(b.bucket),
		IndexName:        aws.String(b.index),
	})
	if err != nil {
		return vectorstore.StatusUnknown, classify(err)
	}
	return vectorstore.StatusActive, nil
}

// DeleteIndex removes the index.
func (b *Backend) DeleteIndex(ctx context.Context) error {
	_, err := b.client.DeleteIndex(ctx, &s3vectors.DeleteIndexInput{
		VectorBucketName: aws.String(b.bucket),
		IndexName:        aws.String(b.index),
	})
	return classify(err)
}

// DeleteBucket removes the vector bucket. All indexes must be deleted
// first.
func (b *Backend) DeleteBucket(ctx context.Context) error {
	_, err := b.client.DeleteVectorBucket(ctx, &s3vectors.DeleteVectorBucketInput{
		VectorBucketName: aws.String(b.bucket),
	})
	return classify(err)
}

func distanceMetric(metric string) types.DistanceMetric {
	if strings.EqualFold(metric, "euclidean") {
		return types.DistanceMetricEuclidean
	}
	return types.DistanceMetricCosine
}

// classify maps AWS service errors to the adapter's sentinel errors so the
// store can react uniformly across backends.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var throttled *types.TooManyRequestsException
	if errors.As(err, &throttled) {
		return fmt.Errorf("%w: %v", vectorstore.ErrThrottled, err)
	}

	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", vectorstore.ErrNotFound, err)
	}

	var conflict *types.ConflictException
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w: %v", vectorstore.ErrAlreadyExists, err)
	}

	// Generic throttling codes that arrive without the typed exception.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException", "ThrottlingException", "SlowDown":
			return fmt.Errorf("%w: %v", vectorstore.ErrThrottled, err)
		}
	}

	return err
}

// decodeMetadata flattens a smithy metadata document to strings.
func decodeMetadata(doc document.Interface) map[string]string {
	out := make(map[string]string)
	if doc == nil {
		return out
	}

	var raw map[string]any
	if err := doc.UnmarshalSmithyDocument(&raw); err != nil {
		return out
	}

	for k, v := range raw {
		switch value := v.(type) {
		case string:
			out[k] = value
		default:
			out[k] = fmt.Sprintf("%v", value)
		}
	}
	return out
}
