package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the whole response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Stream sends a completion request and calls onChunk with each piece of
	// generated text in order. An error from onChunk aborts the stream and is
	// returned. The concatenated chunks equal the Content Complete would give.
	Stream(ctx context.Context, req CompletionRequest, onChunk func(string) error) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
