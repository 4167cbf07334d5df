package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", WithFailureThreshold(3), WithRecoveryTimeout(time.Hour))

	failing := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return failing })
		require.ErrorIs(t, err, failing)
	}

	assert.Equal(t, StateOpen, cb.State())
	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", WithFailureThreshold(1), WithRecoveryTimeout(10*time.Millisecond))

	boom := errors.New("boom")
	require.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", WithFailureThreshold(1), WithRecoveryTimeout(10*time.Millisecond))

	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	_ = cb.Execute(func() error { return errors.New("still broken") })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenRespectsMaxCalls(t *testing.T) {
	cb := NewCircuitBreaker("test", WithFailureThreshold(1), WithRecoveryTimeout(10*time.Millisecond), WithHalfOpenMaxCalls(1))
	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())
}

func TestExecuteWithResult_FallbackWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", WithFailureThreshold(1), WithRecoveryTimeout(time.Hour))
	_ = cb.Execute(func() error { return errors.New("boom") })

	result, err := ExecuteWithResult(cb,
		func() (int, error) { return 42, nil },
		func() (int, error) { return -1, nil },
	)
	require.NoError(t, err)
	assert.Equal(t, -1, result)
}
