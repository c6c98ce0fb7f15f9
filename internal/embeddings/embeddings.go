// Package embeddings turns text into fixed-length vectors through a
// pluggable provider, with request pacing, transport retries, and per-item
// failure isolation for batches.
package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/docqa/internal/observability"
	"github.com/haasonsaas/docqa/internal/ratelimit"
	"github.com/haasonsaas/docqa/internal/retry"
	"github.com/haasonsaas/docqa/pkg/models"
)

// Provider defines the interface for embedding backends. Implementations
// perform a single synchronous call; pacing and retries live in Client.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string

	// Dimension returns the embedding dimension.
	Dimension() int
}

// Client wraps a Provider with an inter-request rate limit and bounded
// retry. Calls are strictly sequential; the limiter blocks the calling
// goroutine until the minimum interval since the last request has elapsed.
type Client struct {
	provider Provider
	limiter  *ratelimit.Interval
	retry    retry.Config
	reporter observability.Reporter
}

// Option configures a Client.
type Option func(*Client)

// WithRequestsPerSecond caps the request rate (default 30/s).
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) { c.limiter = ratelimit.PerSecond(rps) }
}

// WithRetry overrides the transport retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithReporter sets where non-fatal batch failures are surfaced.
func WithReporter(r observability.Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// NewClient creates a rate-limited embedding client around a provider.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		limiter:  ratelimit.PerSecond(30),
		retry:    retry.Exponential(5, 200*time.Millisecond, 10*time.Second),
		reporter: observability.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the underlying provider name.
func (c *Client) Name() string { return c.provider.Name() }

// Dimension returns the underlying provider's vector dimension.
func (c *Client) Dimension() int { return c.provider.Dimension() }

// Embed generates an embedding for a single text, pacing the request and
// retrying transient failures with exponential backoff and jitter.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry.DoWithValue(ctx, c.retry, func() ([]float32, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, retry.Permanent(err)
		}
		return c.provider.Embed(ctx, text)
	})
}

// EmbedBatch embeds texts one by one, preserving length and order. A text
// whose embedding fails even after retries gets a failure marker at its
// position; the batch continues with the remaining texts. The aggregate
// failure count is reported after the batch when nonzero.
//
// The only way EmbedBatch itself fails is context cancellation.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]models.EmbeddingResult, error) {
	results := make([]models.EmbeddingResult, len(texts))
	failed := 0

	for i, text := range texts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		vector, err := c.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			results[i] = models.EmbeddingResult{Err: err}
			failed++
			c.reporter.Warn(ctx, "embedding failed, continuing batch",
				"index", i,
				"text_length", len(text),
				"error", truncate(err.Error(), 120),
			)
			continue
		}
		results[i] = models.EmbeddingResult{Vector: vector}
	}

	if failed > 0 {
		c.reporter.Warn(ctx, "batch completed with failures",
			"total", len(texts),
			"failed", failed,
		)
	}

	return results, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...", s[:max])
}
