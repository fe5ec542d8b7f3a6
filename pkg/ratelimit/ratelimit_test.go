package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutePassesThroughNonThrottleError(t *testing.T) {
	limiter := New(Config{}, nil)
	wantErr := errors.New("access denied")

	calls := 0
	err := limiter.Execute(context.Background(), "DescribeInstances", func() error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls, "non-throttle errors must not be retried")
}

func TestExecuteRetriesThrottleError(t *testing.T) {
	limiter := New(Config{DefaultRequestsPerSecond: 1000}, nil)

	calls := 0
	err := limiter.Execute(context.Background(), "DescribeInstances", func() error {
		calls++
		if calls < 3 {
			return errors.New("Throttling: rate exceeded")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteGivesUpAfterMaxRetries(t *testing.T) {
	limiter := New(Config{DefaultRequestsPerSecond: 1000}, nil)

	calls := 0
	err := limiter.Execute(context.Background(), "DescribeInstances", func() error {
		calls++
		return errors.New("too many requests")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, maxRetries, calls)
}

func TestExecuteRespectsContextCancellation(t *testing.T) {
	limiter := New(Config{DefaultRequestsPerSecond: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	// Prime the last-call time so the next call has to wait.
	require.NoError(t, limiter.Execute(ctx, "ModifyInstanceAttribute", func() error { return nil }))

	cancel()
	err := limiter.Execute(ctx, "ModifyInstanceAttribute", func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutePacesCallsPerAPI(t *testing.T) {
	limiter := New(Config{
		DefaultRequestsPerSecond: 1000,
		APILimits:                map[string]int{"SlowAPI": 20},
	}, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Execute(ctx, "SlowAPI", func() error { return nil }))
	}
	elapsed := time.Since(start)

	// 20 rps means at least 50ms between calls: three calls need ~100ms.
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Throttling: request rejected"), true},
		{errors.New("Rate exceeded for operation"), true},
		{errors.New("RequestLimitExceeded: limit exceeded"), true},
		{errors.New("429 too many requests"), true},
		{errors.New("InvalidParameterValue"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldRetry(tt.err), "error: %v", tt.err)
	}
}
