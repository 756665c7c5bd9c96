package llmclient

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIBackend implements LLMClient over the OpenAI chat completions API;
// this is the "llm_b" service named in the /health payload.
type openAIBackend struct {
	client openai.Client
}

func newOpenAIBackend(apiKey string) *openAIBackend {
	return &openAIBackend{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (o *openAIBackend) Name() string    { return "llm_b" }
func (o *openAIBackend) Available() bool { return true }

func (o *openAIBackend) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4o,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm_b generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &GenerateResponse{}, nil
	}
	return &GenerateResponse{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
