package llmclient

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicBackend implements LLMClient over the Anthropic messages API;
// this is the "llm_a" service named in the /health payload.
type anthropicBackend struct {
	client anthropic.Client
}

func newAnthropicBackend(apiKey string) *anthropicBackend {
	return &anthropicBackend{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (a *anthropicBackend) Name() string   { return "llm_a" }
func (a *anthropicBackend) Available() bool { return true }

func (a *anthropicBackend) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaudeSonnet4_5,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm_a generate: %w", err)
	}
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &GenerateResponse{
		Text:         text,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
