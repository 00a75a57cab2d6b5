package llm

import (
	"context"
	"time"

	accorderrors "accord/internal/errors"
	"accord/internal/logging"
)

// retryClient wraps a client with per-agent retry logic. Exhausting the retry
// ceiling on transient failures degrades to an empty completion instead of an
// error: one agent's outage must not bring down the whole session, and the
// downstream truncation heuristics flag the empty answer anyway. Permanent
// failures (bad credential, malformed request) propagate immediately.
type retryClient struct {
	underlying  Client
	retryConfig accorderrors.RetryConfig
	logger      logging.Logger
	onCall      func()
}

// NewRetryClient wraps client with the retry policy. onCall, when non-nil, is
// invoked once per logical completion call for cost/telemetry accounting.
func NewRetryClient(client Client, retryConfig accorderrors.RetryConfig, onCall func()) Client {
	return &retryClient{
		underlying:  client,
		retryConfig: retryConfig,
		logger:      logging.NewComponentLogger("llm-retry"),
		onCall:      onCall,
	}
}

func (c *retryClient) Model() string {
	return c.underlying.Model()
}

func (c *retryClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if c.onCall != nil {
		c.onCall()
	}

	startTime := time.Now()
	resp, err := accorderrors.RetryWithResultAndLog(ctx, c.retryConfig, func(ctx context.Context) (*CompletionResponse, error) {
		return c.underlying.Complete(ctx, req)
	}, c.logger)

	duration := time.Since(startTime)

	if err != nil {
		if accorderrors.IsPermanent(err) || ctx.Err() != nil {
			c.logger.Warn("LLM request failed (took %v): %v", duration, err)
			return nil, err
		}
		c.logger.Warn("LLM request degraded to empty answer after retries (took %v): %v", duration, err)
		return &CompletionResponse{Content: "", StopReason: StopReasonLength}, nil
	}

	if duration > 5*time.Second {
		c.logger.Debug("LLM request succeeded after %v", duration)
	}

	return resp, nil
}
