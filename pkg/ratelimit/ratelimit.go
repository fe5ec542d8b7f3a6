// Package ratelimit paces outbound provider API calls and retries
// throttled operations with exponential backoff. Limiters are
// constructed and injected; there is no ambient registry.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	maxRetries    = 5
	baseDelay     = 100 * time.Millisecond
	maxDelay      = 30 * time.Second
	jitterPercent = 0.1

	defaultRequestsPerSecond = 5
)

// Config holds rate limits for one provider's APIs.
type Config struct {
	// DefaultRequestsPerSecond applies to APIs not explicitly listed.
	DefaultRequestsPerSecond int

	// APILimits overrides the default per API name.
	APILimits map[string]int
}

// DefaultConfig returns a conservative default limit set.
func DefaultConfig() Config {
	return Config{
		DefaultRequestsPerSecond: defaultRequestsPerSecond,
		APILimits: map[string]int{
			"DescribeInstances":       10,
			"ModifyInstanceAttribute": 5,
		},
	}
}

// Limiter paces calls per API name and retries throttle errors.
type Limiter struct {
	mu            sync.Mutex
	lastCallTimes map[string]time.Time
	config        Config
	logger        *zap.Logger
}

// New creates a limiter. A zero-valued config falls back to defaults.
func New(config Config, logger *zap.Logger) *Limiter {
	if config.DefaultRequestsPerSecond <= 0 {
		config.DefaultRequestsPerSecond = defaultRequestsPerSecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		lastCallTimes: make(map[string]time.Time),
		config:        config,
		logger:        logger,
	}
}

func (l *Limiter) getInterval(apiName string) time.Duration {
	if rps, ok := l.config.APILimits[apiName]; ok && rps > 0 {
		return time.Second / time.Duration(rps)
	}
	return time.Second / time.Duration(l.config.DefaultRequestsPerSecond)
}

func addJitter(delay time.Duration) time.Duration {
	jitter := float64(delay) * jitterPercent
	return delay + time.Duration(jitter*(rand.Float64()*2-1))
}

// shouldRetry determines if an error is a throttle signal.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "throttling") ||
		strings.Contains(errStr, "rate exceeded") ||
		strings.Contains(errStr, "limit exceeded") ||
		strings.Contains(errStr, "too many requests")
}

// Execute runs an operation under the API's rate limit, retrying
// throttle errors with exponential backoff and jitter. Non-throttle
// errors are returned immediately.
func (l *Limiter) Execute(ctx context.Context, apiName string, operation func() error) error {
	l.mu.Lock()
	lastCall, exists := l.lastCallTimes[apiName]
	minWait := l.getInterval(apiName)

	now := time.Now()
	if exists && now.Sub(lastCall) < minWait {
		sleepTime := minWait - now.Sub(lastCall)
		l.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepTime):
		}
		l.mu.Lock()
	}
	l.lastCallTimes[apiName] = time.Now()
	l.mu.Unlock()

	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if !shouldRetry(err) {
			return err
		}

		l.logger.Debug("rate limited, retrying operation",
			zap.String("api", apiName),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(addJitter(delay)):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return fmt.Errorf("max retries exceeded for %s: %w", apiName, err)
}
