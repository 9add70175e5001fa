package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the OpenAI Chat Completions API.
// Any OpenAI-compatible backend works through a base URL.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates a provider for api.openai.com.
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAICompatibleProvider("openai", apiKey, "", model)
}

// NewOpenAICompatibleProvider creates a provider for an OpenAI-compatible
// endpoint such as DeepSeek or Ollama. An empty baseURL uses OpenAI.
func NewOpenAICompatibleProvider(name, apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   name,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) request(req CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       req.modelOr(p.model),
		Messages:    messages,
		MaxTokens:   req.maxTokens(),
		Temperature: float32(req.Temperature),
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(req))
	if err != nil {
		return nil, eris.Wrapf(err, "%s: chat completion", p.name)
	}

	out := &CompletionResponse{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, req CompletionRequest, onChunk func(string) error) (*CompletionResponse, error) {
	apiReq := p.request(req)
	apiReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: open stream", p.name)
	}
	defer stream.Close()

	var (
		content strings.Builder
		out     = &CompletionResponse{Model: apiReq.Model}
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "%s: read stream", p.name)
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			out.FinishReason = string(choice.FinishReason)
		}
		if text := choice.Delta.Content; text != "" {
			content.WriteString(text)
			if err := onChunk(text); err != nil {
				return nil, err
			}
		}
	}
	out.Content = content.String()
	return out, nil
}
