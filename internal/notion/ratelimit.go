package notion

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a token bucket for Notion API requests. It allows bursts
// up to the bucket size and refills at a steady rate. Wait is safe for
// concurrent use.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	retryAfter time.Time

	// consecutive 429s inside a 30s window widen the back-off
	consecutiveThrottles int
	lastThrottleTime     time.Time
}

// NewRateLimiter creates a limiter averaging requestsPerSecond with bursts of
// up to burstSize requests.
func NewRateLimiter(requestsPerSecond float64, burstSize int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 3.0
	}
	if burstSize < 1 {
		burstSize = 1
	}
	return &RateLimiter{
		tokens:     float64(burstSize),
		maxTokens:  float64(burstSize),
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// DefaultRateLimiter matches Notion's documented average of three requests
// per second.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(3.0, 10)
}

// Wait blocks until a request may be sent or ctx is done. A pending
// Retry-After window from SetRetryAfter is honored first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()

	if delay := time.Until(r.retryAfter); delay > 0 {
		r.mu.Unlock()
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		r.mu.Lock()
	}

	r.refill(time.Now())

	if r.tokens < 1 {
		delay := time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second))
		r.mu.Unlock()
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		r.mu.Lock()
		r.refill(time.Now())
	}

	r.tokens--
	r.mu.Unlock()

	return nil
}

// refill adds the tokens earned since the last refill. Caller holds mu.
func (r *RateLimiter) refill(now time.Time) {
	r.tokens += now.Sub(r.lastRefill).Seconds() * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = now
}

// SetRetryAfter pauses all requests for duration. Repeated throttling within
// 30 seconds doubles the pause each time, up to 8x and at most 30 seconds.
func (r *RateLimiter) SetRetryAfter(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastThrottleTime) < 30*time.Second {
		r.consecutiveThrottles++
	} else {
		r.consecutiveThrottles = 1
	}
	r.lastThrottleTime = now

	adjusted := duration * time.Duration(1<<min(r.consecutiveThrottles-1, 3))
	adjusted = min(adjusted, 30*time.Second)

	r.retryAfter = now.Add(adjusted)
	r.tokens = 0
}

// ResetThrottleState clears the back-off multiplier once requests have been
// succeeding for a while.
func (r *RateLimiter) ResetThrottleState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastThrottleTime) > 10*time.Second {
		r.consecutiveThrottles = 0
	}
}

// ParseRetryAfter parses a Retry-After header value given either as seconds
// or as an HTTP date. Empty or invalid values fall back to one second.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return time.Second
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		return time.Until(t)
	}
	return time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
