package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type blockingClient struct {
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	hold     time.Duration
}

func (c *blockingClient) Model() string { return "blocking" }

func (c *blockingClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	current := c.inFlight.Add(1)
	for {
		seen := c.maxSeen.Load()
		if current <= seen || c.maxSeen.CompareAndSwap(seen, current) {
			break
		}
	}
	time.Sleep(c.hold)
	c.inFlight.Add(-1)
	return &CompletionResponse{Content: "ok", StopReason: StopReasonStop}, nil
}

func TestConcurrencyLimitCapsInFlightCalls(t *testing.T) {
	base := &blockingClient{hold: 20 * time.Millisecond}
	registry := NewLimiterRegistry()
	client := WrapWithConcurrencyLimit(base, registry, "gpt", 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Complete(context.Background(), CompletionRequest{})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, base.maxSeen.Load(), int64(2))
}

func TestConcurrencyLimitIndependentPerAgent(t *testing.T) {
	registry := NewLimiterRegistry()
	a := registry.limiterFor("gpt", 1)
	b := registry.limiterFor("claude", 1)
	require.NotSame(t, a, b)

	// Same name reuses the same limiter for the registry's lifetime.
	require.Same(t, a, registry.limiterFor("gpt", 1))
}

func TestWrapWithConcurrencyLimitDisabled(t *testing.T) {
	base := &blockingClient{}
	require.Equal(t, Client(base), WrapWithConcurrencyLimit(base, NewLimiterRegistry(), "gpt", 0))
	require.Equal(t, Client(base), WrapWithConcurrencyLimit(base, nil, "gpt", 2))
}

func TestConcurrencyLimitRespectsContext(t *testing.T) {
	registry := NewLimiterRegistry()
	base := &blockingClient{hold: 50 * time.Millisecond}
	client := WrapWithConcurrencyLimit(base, registry, "gpt", 1)

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = client.Complete(context.Background(), CompletionRequest{})
	}()
	<-started
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, CompletionRequest{})
	require.Error(t, err)
}
