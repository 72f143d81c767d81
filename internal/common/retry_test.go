package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verdantlabs/factormatch/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastRetry(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return errors.New("always broken")
	}, fastRetry(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	permanent := NewRetryableError(errors.New("bad request"), false)
	err := WithRetry(context.Background(), func() error {
		calls++
		return permanent
	}, fastRetry(5))

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var retryable *RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.False(t, retryable.Retryable)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	}, fastRetry(5))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRateLimitUsesMaxDelay(t *testing.T) {
	opts := fastRetry(2)
	opts.MaxDelay = 10 * time.Millisecond

	start := time.Now()
	err := WithRetry(context.Background(), func() error {
		return ErrRateLimit
	}, opts)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
}
