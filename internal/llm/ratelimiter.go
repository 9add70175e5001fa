package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a token bucket rate limiter.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider wraps the given provider with a rate limiter
// that allows at most rpm requests per minute. rpm <= 0 disables limiting.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	if rpm <= 0 {
		return provider
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

func (r *RateLimitedProvider) Stream(ctx context.Context, req CompletionRequest, onChunk func(string) error) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Stream(ctx, req, onChunk)
}

// wait blocks for a token. A wait that would outlast the context deadline
// fails immediately.
func (r *RateLimitedProvider) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return eris.Wrap(context.DeadlineExceeded, "rate limit wait exceeds deadline")
	}
	return nil
}
