package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2,
		Retryable:    func(error) bool { return true },
	}

	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryablePropagatesImmediately(t *testing.T) {
	attempts := 0
	sentinel := errors.New("fatal")
	cfg := RetryConfig{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2,
		Retryable:    func(error) bool { return false },
	}

	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultRetryConfig()
	cfg.Retryable = func(error) bool { return true }

	err := Retry(ctx, cfg, func() error { return errors.New("boom") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult_ReturnsValueOnSuccess(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, Retryable: func(error) bool { return true }}
	result, err := RetryWithResult(context.Background(), cfg, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, result)
}
