package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps any LLMClient with a token-bucket limiter.
//
// Persona simulation fans out dozens of concurrent calls per iteration;
// without a shared limiter that burst trips provider rate limits and the
// run degrades into retry storms. Wait blocks until a slot opens or the
// context is done.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps inner at the given requests-per-second with
// the given burst size.
func NewRateLimitedClient(inner LLMClient, rps float64, burst int) (*RateLimitedClient, error) {
	if inner == nil {
		return nil, fmt.Errorf("rate limited client: inner client is nil")
	}
	if rps <= 0 || burst < 1 {
		return nil, fmt.Errorf("rate limited client: need rps > 0 and burst >= 1, got %f/%d", rps, burst)
	}
	slog.Info("Initializing rate limited LLM client", "rps", rps, "burst", burst)
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// Generate implements the LLMClient interface.
func (c *RateLimitedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}
	return c.inner.Generate(ctx, prompt, params)
}

// Chat implements the LLMClient interface.
func (c *RateLimitedClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}
	return c.inner.Chat(ctx, messages, params)
}

var _ LLMClient = (*RateLimitedClient)(nil)
