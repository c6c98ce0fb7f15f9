// Package llm provides answer generators over Bedrock and the Anthropic
// API, both satisfying the rag.Generator contract.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/haasonsaas/docqa/internal/rag"
)

// InvokeModelAPI is the slice of the Bedrock runtime client the generator
// needs, kept narrow so tests can substitute a fake.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockGenerator runs Anthropic models through the Bedrock messages API.
type BedrockGenerator struct {
	client  InvokeModelAPI
	modelID string
}

var _ rag.Generator = (*BedrockGenerator)(nil)

// NewBedrock creates a generator for the given Bedrock model ID.
func NewBedrock(client InvokeModelAPI, modelID string) *BedrockGenerator {
	return &BedrockGenerator{client: client, modelID: modelID}
}

// NewBedrockFromConfig creates the generator with a Bedrock runtime client
// built from an AWS config.
func NewBedrockFromConfig(awsCfg aws.Config, modelID string) *BedrockGenerator {
	return NewBedrock(bedrockruntime.NewFromConfig(awsCfg), modelID)
}

// Name identifies the generator.
func (g *BedrockGenerator) Name() string { return "bedrock:" + g.modelID }

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockMessagesRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float32          `json:"temperature"`
	TopP             float32          `json:"top_p"`
}

type bedrockMessagesResponse struct {
	Content []bedrockContentBlock `json:"content"`
}

// Generate sends the prompt as a single user message and concatenates the
// text blocks of the reply.
func (g *BedrockGenerator) Generate(ctx context.Context, req rag.GenerationRequest) (string, error) {
	body, err := json.Marshal(bedrockMessagesRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        req.MaxTokens,
		Messages: []bedrockMessage{{
			Role:    "user",
			Content: []bedrockContentBlock{{Type: "text", Text: req.Prompt}},
		}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generation request: %w", err)
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("invoke model %s: %w", g.modelID, err)
	}

	var resp bedrockMessagesResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("model %s returned no text content", g.modelID)
	}
	return b.String(), nil
}
