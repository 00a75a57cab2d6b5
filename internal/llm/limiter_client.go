package llm

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// LimiterRegistry hands out one concurrency limiter per agent name. Limiters
// are created lazily and reused for the registry's lifetime; waiters are
// served in FIFO order per agent. The registry is injected rather than held in
// package state so concurrent sessions share limits without cross-talk.
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*semaphore.Weighted
}

// NewLimiterRegistry builds an empty registry.
func NewLimiterRegistry() *LimiterRegistry {
	return &LimiterRegistry{limiters: make(map[string]*semaphore.Weighted)}
}

func (r *LimiterRegistry) limiterFor(name string, max int64) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[name]
	if !ok {
		limiter = semaphore.NewWeighted(max)
		r.limiters[name] = limiter
	}
	return limiter
}

type concurrencyLimitedClient struct {
	base    Client
	limiter *semaphore.Weighted
}

// WrapWithConcurrencyLimit caps the number of simultaneously in-flight calls
// through client. A max below 1 returns the client unwrapped.
func WrapWithConcurrencyLimit(client Client, registry *LimiterRegistry, name string, max int64) Client {
	if registry == nil || max < 1 {
		return client
	}
	return &concurrencyLimitedClient{
		base:    client,
		limiter: registry.limiterFor(name, max),
	}
}

func (c *concurrencyLimitedClient) Model() string {
	return c.base.Model()
}

func (c *concurrencyLimitedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := c.limiter.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.limiter.Release(1)
	return c.base.Complete(ctx, req)
}
