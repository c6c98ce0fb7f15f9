// Package bedrock provides an embedding provider backed by Amazon Titan
// Text Embeddings on AWS Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/haasonsaas/docqa/internal/embeddings"
)

// InvokeModelAPI is the subset of the Bedrock runtime client this provider
// uses. Tests substitute a fake.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Provider implements embeddings.Provider using Titan Text Embeddings V2.
type Provider struct {
	client    InvokeModelAPI
	modelID   string
	dimension int
	normalize bool
}

var _ embeddings.Provider = (*Provider)(nil)

// Config contains configuration for the Bedrock embedding provider.
type Config struct {
	// ModelID is the Bedrock model identifier
	// (default: amazon.titan-embed-text-v2:0).
	ModelID string

	// Dimension is the requested output dimension: 1024, 512, or 256
	// (default: 1024).
	Dimension int

	// Normalize requests unit-length output vectors.
	Normalize bool
}

// New creates a Bedrock embedding provider on an existing runtime client.
func New(client InvokeModelAPI, cfg Config) *Provider {
	if cfg.ModelID == "" {
		cfg.ModelID = "amazon.titan-embed-text-v2:0"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1024
	}
	return &Provider{
		client:    client,
		modelID:   cfg.ModelID,
		dimension: cfg.Dimension,
		normalize: cfg.Normalize,
	}
}

// NewFromConfig creates the provider with a Bedrock runtime client built
// from an AWS config.
func NewFromConfig(awsCfg aws.Config, cfg Config) *Provider {
	return New(bedrockruntime.NewFromConfig(awsCfg), cfg)
}

// Name returns the provider name.
func (p *Provider) Name() string { return "bedrock" }

// Dimension returns the configured output dimension.
func (p *Provider) Dimension() int { return p.dimension }

// titanRequest is the InvokeModel body for Titan Text Embeddings V2.
type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{
		InputText:  text,
		Dimensions: p.dimension,
		Normalize:  p.normalize,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock embed: marshal request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock embed: invoke %s: %w", p.modelID, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("bedrock embed: decode response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("bedrock embed: empty embedding in response")
	}

	return resp.Embedding, nil
}
