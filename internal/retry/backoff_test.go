package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   20 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, time.Second, config.BaseDelay)
	assert.Equal(t, 30*time.Second, config.MaxDelay)
	assert.Equal(t, 2.0, config.Multiplier)
	assert.True(t, config.Jitter)
	assert.Nil(t, config.Retryable)
}

func TestPersistRetryConfigStaysUnderHeartbeat(t *testing.T) {
	config := PersistRetryConfig()
	config.Jitter = false

	var total time.Duration
	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		total += calculateDelay(config, attempt)
	}
	assert.Less(t, total, 3*time.Second)
	require.NotNil(t, config.Retryable)
}

func TestRetryWithBackoffSuccess(t *testing.T) {
	result := RetryWithBackoff(context.Background(), fastConfig(2), func(context.Context) error {
		return nil
	}, zerolog.Nop())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.NoError(t, result.Err())
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	attempts := 0
	result := RetryWithBackoff(context.Background(), fastConfig(3), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil
	}, zerolog.Nop())

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.NotZero(t, result.TotalDuration)
}

func TestRetryWithBackoffAllAttemptsFail(t *testing.T) {
	expected := errors.New("persistent failure")
	result := RetryWithBackoff(context.Background(), fastConfig(2), func(context.Context) error {
		return expected
	}, zerolog.Nop())

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.ErrorIs(t, result.Err(), expected)
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	config := fastConfig(5)
	config.Retryable = IsRetryableError

	calls := 0
	result := RetryWithBackoff(context.Background(), config, func(context.Context) error {
		calls++
		return errors.New("permission denied")
	}, zerolog.Nop())

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoffContextCancellation(t *testing.T) {
	config := RetryConfig{MaxRetries: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	result := RetryWithBackoff(ctx, config, func(context.Context) error {
		return errors.New("always fails")
	}, zerolog.Nop())

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.LastError, context.DeadlineExceeded)
	assert.LessOrEqual(t, result.Attempts, 2)
}

func TestCalculateDelay(t *testing.T) {
	config := RetryConfig{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2.0}

	assert.Equal(t, 1*time.Second, calculateDelay(config, 0))
	assert.Equal(t, 2*time.Second, calculateDelay(config, 1))
	assert.Equal(t, 4*time.Second, calculateDelay(config, 2))
	assert.Equal(t, 10*time.Second, calculateDelay(config, 10), "capped at MaxDelay")
}

func TestCalculateDelayWithJitter(t *testing.T) {
	config := RetryConfig{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2.0, Jitter: true}

	for i := 0; i < 20; i++ {
		assert.InDelta(t, float64(2*time.Second), float64(calculateDelay(config, 1)), float64(200*time.Millisecond))
	}
}

func TestIsRetryableError(t *testing.T) {
	retryable := []error{
		errors.New("connection refused"),
		errors.New("read tcp: i/o timeout"),
		errors.New("HTTP 503 Service Unavailable"),
		fmt.Errorf("write: %w", context.DeadlineExceeded),
		errors.New("unexpected EOF"),
	}
	for _, err := range retryable {
		assert.True(t, IsRetryableError(err), err.Error())
	}

	permanent := []error{
		nil,
		errors.New("invalid input"),
		errors.New("HTTP 404 Not Found"),
		fmt.Errorf("write: %w", context.Canceled),
	}
	for _, err := range permanent {
		assert.False(t, IsRetryableError(err), "%v", err)
	}
}
