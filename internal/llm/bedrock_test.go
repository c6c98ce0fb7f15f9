package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/haasonsaas/docqa/internal/rag"
)

type fakeRuntime struct {
	lastInput *bedrockruntime.InvokeModelInput
	body      []byte
	err       error
}

func (f *fakeRuntime) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestGenerateSendsMessagesRequest(t *testing.T) {
	fake := &fakeRuntime{body: []byte(`{"content":[{"type":"text","text":"Paris."}]}`)}
	gen := NewBedrock(fake, "anthropic.claude-test")

	answer, err := gen.Generate(context.Background(), rag.GenerationRequest{
		Prompt:      "What is the capital of France?",
		MaxTokens:   100,
		Temperature: 0.3,
		TopP:        0.9,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Paris." {
		t.Errorf("answer = %q", answer)
	}

	if got := aws.ToString(fake.lastInput.ModelId); got != "anthropic.claude-test" {
		t.Errorf("model ID = %q", got)
	}

	var req bedrockMessagesRequest
	if err := json.Unmarshal(fake.lastInput.Body, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if req.AnthropicVersion != "bedrock-2023-05-31" {
		t.Errorf("anthropic_version = %q", req.AnthropicVersion)
	}
	if req.MaxTokens != 100 || req.Temperature != 0.3 || req.TopP != 0.9 {
		t.Errorf("sampling params = %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v, want one user message", req.Messages)
	}
	if req.Messages[0].Content[0].Text != "What is the capital of France?" {
		t.Errorf("prompt = %q", req.Messages[0].Content[0].Text)
	}
}

func TestGenerateConcatenatesTextBlocks(t *testing.T) {
	fake := &fakeRuntime{body: []byte(`{"content":[
		{"type":"text","text":"part one "},
		{"type":"tool_use","text":"ignored"},
		{"type":"text","text":"part two"}
	]}`)}
	gen := NewBedrock(fake, "m")

	answer, err := gen.Generate(context.Background(), rag.GenerationRequest{Prompt: "q", MaxTokens: 10})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "part one part two" {
		t.Errorf("answer = %q", answer)
	}
}

func TestGenerateRejectsEmptyContent(t *testing.T) {
	fake := &fakeRuntime{body: []byte(`{"content":[]}`)}
	gen := NewBedrock(fake, "m")

	if _, err := gen.Generate(context.Background(), rag.GenerationRequest{Prompt: "q"}); err == nil {
		t.Fatal("Generate() with empty content should fail")
	}
}

func TestGeneratePropagatesInvokeError(t *testing.T) {
	wantErr := errors.New("access denied")
	gen := NewBedrock(&fakeRuntime{err: wantErr}, "m")

	if _, err := gen.Generate(context.Background(), rag.GenerationRequest{Prompt: "q"}); !errors.Is(err, wantErr) {
		t.Fatalf("Generate() error = %v, want wrapped %v", err, wantErr)
	}
}
