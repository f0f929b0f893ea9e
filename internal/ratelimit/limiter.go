package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles calls to named external resources ("judge",
// "search", "ledger"). Each resource gets its own token bucket shared
// by all concurrent pipeline runs.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// New creates a limiter with the given default per-resource rate
func New(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burst <= 0 {
		burst = 3
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the resource's rate limit clears or the context
// is cancelled.
func (l *Limiter) Wait(ctx context.Context, resource string) error {
	return l.getLimiter(resource).Wait(ctx)
}

// Allow checks if a call is allowed without waiting
func (l *Limiter) Allow(resource string) bool {
	return l.getLimiter(resource).Allow()
}

// getLimiter returns the rate limiter for a resource
func (l *Limiter) getLimiter(resource string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[resource]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[resource]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[resource] = limiter

	return limiter
}

// SetResourceRate sets a custom rate limit for a specific resource
func (l *Limiter) SetResourceRate(resource string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[resource] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
