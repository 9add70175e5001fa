package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// AnthropicProvider implements Provider using the Anthropic Messages API.
type AnthropicProvider struct {
	client sdk.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider. Extra options are
// passed to the SDK client, e.g. option.WithBaseURL in tests.
func NewAnthropicProvider(apiKey string, model string, opts ...option.RequestOption) *AnthropicProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicProvider{
		client: sdk.NewClient(opts...),
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// params splits system messages out of the conversation, which the Messages
// API takes separately.
func (p *AnthropicProvider) params(req CompletionRequest) sdk.MessageNewParams {
	var (
		system   []sdk.TextBlockParam
		messages []sdk.MessageParam
	)
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, sdk.TextBlockParam{Text: msg.Content})
		case RoleAssistant:
			messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.modelOr(p.model)),
		MaxTokens: int64(req.maxTokens()),
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	return params
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	msg, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return &CompletionResponse{
		Content:      content.String(),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
	}, nil
}

func (p *AnthropicProvider) Stream(ctx context.Context, req CompletionRequest, onChunk func(string) error) (*CompletionResponse, error) {
	params := p.params(req)
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		content strings.Builder
		out     = &CompletionResponse{Model: string(params.Model)}
	)
	for stream.Next() {
		ev := stream.Current()
		switch ev.Type {
		case "message_start":
			out.InputTokens = int(ev.Message.Usage.InputTokens)
		case "content_block_delta":
			if ev.Delta.Type != "text_delta" || ev.Delta.Text == "" {
				continue
			}
			content.WriteString(ev.Delta.Text)
			if err := onChunk(ev.Delta.Text); err != nil {
				return nil, err
			}
		case "message_delta":
			out.FinishReason = string(ev.Delta.StopReason)
			out.OutputTokens = int(ev.Usage.OutputTokens)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, eris.Wrap(err, "anthropic: stream message")
	}
	out.Content = content.String()
	return out, nil
}
