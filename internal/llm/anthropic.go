package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/docqa/internal/rag"
)

// AnthropicGenerator runs models against the Anthropic API directly, for
// deployments without Bedrock access.
type AnthropicGenerator struct {
	client anthropic.Client
	model  anthropic.Model
}

var _ rag.Generator = (*AnthropicGenerator)(nil)

// NewAnthropic creates a generator using the given API key and model.
func NewAnthropic(apiKey, model string) *AnthropicGenerator {
	return &AnthropicGenerator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Name identifies the generator.
func (g *AnthropicGenerator) Name() string { return "anthropic:" + string(g.model) }

// Generate sends the prompt as a single user message.
func (g *AnthropicGenerator) Generate(ctx context.Context, req rag.GenerationRequest) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       g.model,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		TopP:        anthropic.Float(float64(req.TopP)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("model %s returned no text content", g.model)
	}
	return b.String(), nil
}
