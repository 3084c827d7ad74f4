package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCodeAndRetryable(t *testing.T) {
	tests := []struct {
		kind      Kind
		wantCode  string
		retryable bool
	}{
		{KindValidation, CodeValidation, false},
		{KindTimeout, CodeTimeout, true},
		{KindDependencyDegraded, CodeDegraded, true},
		{KindDependencyFatal, CodeFatal, true},
		{KindNotFound, CodeNotFound, false},
		{KindRateLimited, CodeRateLimited, true},
		{KindInternal, CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New(tt.kind, "boom", nil)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestError_UnwrapAndKindOf(t *testing.T) {
	cause := errors.New("connection refused")
	err := Degraded("llm", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindDependencyDegraded, KindOf(err))
	assert.Equal(t, "llm", err.Details["component"])

	wrapped := fmt.Errorf("search: %w", err)
	assert.True(t, IsKind(wrapped, KindDependencyDegraded))
	assert.True(t, IsRetryable(wrapped))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return Validation("bad input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesTransient(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return Timeout("slow", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return Degraded("vector", errors.New("down"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial + 2 retries
}

func TestRetry_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), func() error {
		return Timeout("slow", nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
}
