package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"accord/internal/logging"
)

func TestBackoffGrowsExponentiallyAndCaps(t *testing.T) {
	config := RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    4 * time.Second,
	}

	require.Equal(t, 1*time.Second, Backoff(0, config))
	require.Equal(t, 2*time.Second, Backoff(1, config))
	require.Equal(t, 4*time.Second, Backoff(2, config))
	require.Equal(t, 4*time.Second, Backoff(5, config))
}

func TestBackoffJitterStaysWithinBounds(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}

	for i := 0; i < 100; i++ {
		delay := Backoff(1, config)
		require.GreaterOrEqual(t, delay, 1500*time.Millisecond)
		require.LessOrEqual(t, delay, 2500*time.Millisecond)
	}
}

func TestRetryWithResultStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := RetryWithResultAndLog(context.Background(), DefaultRetryConfig(), func(ctx context.Context) (string, error) {
		calls++
		return "", NewPermanentError(errors.New("bad key"), "authentication failed")
	}, logging.Nop())

	require.Error(t, err)
	require.Equal(t, 1, calls)

	var perr *PermanentError
	require.ErrorAs(t, err, &perr)
}

func TestRetryWithResultRetriesTransientErrors(t *testing.T) {
	config := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	result, err := RetryWithResultAndLog(context.Background(), config, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("overloaded"), "server overloaded")
		}
		return "ok", nil
	}, logging.Nop())

	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 3, calls)
}

func TestRetryWithResultExhaustsRetries(t *testing.T) {
	config := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	_, err := RetryWithResultAndLog(context.Background(), config, func(ctx context.Context) (string, error) {
		calls++
		return "", NewTransientError(errors.New("rate limited"), "rate limited")
	}, logging.Nop())

	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.True(t, IsTransient(err))
}

func TestRetryWithResultHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithResultAndLog(ctx, DefaultRetryConfig(), func(ctx context.Context) (string, error) {
		calls++
		return "", nil
	}, logging.Nop())

	require.Error(t, err)
	require.Equal(t, 0, calls)
}

func TestRetryAfterHint(t *testing.T) {
	err := &TransientError{Err: errors.New("rate limited"), RetryAfter: 7}
	require.Equal(t, 7, RetryAfterHint(err))
	require.Equal(t, 0, RetryAfterHint(errors.New("plain")))
}

func TestIsTransientClassification(t *testing.T) {
	require.True(t, IsTransient(NewTransientError(errors.New("x"), "")))
	require.False(t, IsTransient(NewPermanentError(errors.New("x"), "")))
	require.False(t, IsTransient(errors.New("unknown")))
	require.False(t, IsTransient(nil))
}
