package llm

import (
	"context"
	"sync"
	"time"
)

// rateLimitedClient wraps another Client and spaces out calls by a fixed interval.
type rateLimitedClient struct {
	delegate    Client
	interval    time.Duration
	mu          sync.Mutex
	nextAllowed time.Time
}

// NewRateLimitedClient returns a Client that waits at least interval between
// calls. A non-positive interval returns base unchanged.
func NewRateLimitedClient(base Client, interval time.Duration) Client {
	if base == nil || interval <= 0 {
		return base
	}
	return &rateLimitedClient{
		delegate: base,
		interval: interval,
	}
}

func (c *rateLimitedClient) wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		now := time.Now()
		if c.nextAllowed.IsZero() || !now.Before(c.nextAllowed) {
			c.nextAllowed = now.Add(c.interval)
			c.mu.Unlock()
			return nil
		}

		wait := time.Until(c.nextAllowed)
		c.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *rateLimitedClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.delegate.Complete(ctx, prompt)
}

func (c *rateLimitedClient) CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.delegate.CompleteWithRequest(ctx, req)
}

func (c *rateLimitedClient) GetModelName() string {
	return c.delegate.GetModelName()
}
