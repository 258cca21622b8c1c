package ai

import (
	"math"
	"math/rand"
	"time"
)

// Backoff constants for the per-provider retry loop. The general
// schedule grows at 1.8x with up to a second of jitter; rate-limit
// waits honour Retry-After and otherwise double from 8s.
const (
	baseRetryDelay     = 3 * time.Second
	maxRetryDelay      = 30 * time.Second
	retryGrowth        = 1.8
	maxJitter          = time.Second
	baseRateLimitDelay = 8 * time.Second
	maxRateLimitDelay  = 60 * time.Second
	maxRetryAfter      = 60 * time.Second
)

// BackoffPolicy computes retry delays. Jitter is injectable so the
// schedule can be asserted in tests without real randomness.
type BackoffPolicy struct {
	// Jitter returns a duration in [0, max). Defaults to math/rand.
	Jitter func(max time.Duration) time.Duration
}

func NewBackoffPolicy() *BackoffPolicy {
	return &BackoffPolicy{
		Jitter: func(max time.Duration) time.Duration {
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// RetryDelay returns the wait before the given attempt fires. Attempt
// zero fires immediately; attempt n waits base * growth^(n-1) plus
// jitter, capped at 30 seconds.
func (b *BackoffPolicy) RetryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := time.Duration(float64(baseRetryDelay) * math.Pow(retryGrowth, float64(attempt-1)))
	delay += b.Jitter(maxJitter)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

// RateLimitDelay returns the wait after an HTTP 429 on the given
// attempt. A server-provided Retry-After wins, capped at one minute;
// otherwise the wait doubles per attempt from 8 seconds.
func (b *BackoffPolicy) RateLimitDelay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > maxRetryAfter {
			return maxRetryAfter
		}
		return retryAfter
	}
	delay := time.Duration(float64(baseRateLimitDelay) * math.Pow(2, float64(attempt)))
	if delay > maxRateLimitDelay {
		delay = maxRateLimitDelay
	}
	return delay
}
