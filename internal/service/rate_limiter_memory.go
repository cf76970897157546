package service

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/auth247/pin-server-go/internal/clock"
)

// MemoryRateLimiter is the single-instance counterpart of RateLimiter. Keys
// idle for longer than ttl are dropped, and at most maxKeys are tracked.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows *expirable.LRU[string, []time.Time]
	clock   clock.Clock
}

// NewMemoryRateLimiter creates a limiter. ttl should be at least the longest
// window passed to CheckLimit.
func NewMemoryRateLimiter(maxKeys int, ttl time.Duration, clk clock.Clock) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		windows: expirable.NewLRU[string, []time.Time](maxKeys, nil, ttl),
		clock:   clk,
	}
}

func (rl *MemoryRateLimiter) CheckLimit(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) (allowed bool, resetAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	if limit <= 0 {
		return false, now.Add(window)
	}
	windowStart := now.Add(-window)

	hits, _ := rl.windows.Get(key)
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, ts := range hits {
		if ts.After(windowStart) {
			filtered = append(filtered, ts)
		}
	}

	if len(filtered) >= limit {
		rl.windows.Add(key, filtered)
		return false, filtered[0].Add(window)
	}

	rl.windows.Add(key, append(filtered, now))
	return true, now.Add(window)
}

// Len reports how many keys are currently tracked.
func (rl *MemoryRateLimiter) Len() int {
	return rl.windows.Len()
}

// MemoryLimiters holds the issuance and per-IP limiters. Each has its own
// LRU so IP keys, which clients can vary freely, never evict an issuance
// window.
type MemoryLimiters struct {
	Issue    *MemoryRateLimiter
	Validate *MemoryRateLimiter
}

func NewMemoryLimiters(maxKeys int, issueWindow, validateWindow time.Duration, clk clock.Clock) MemoryLimiters {
	return MemoryLimiters{
		Issue:    NewMemoryRateLimiter(maxKeys, issueWindow, clk),
		Validate: NewMemoryRateLimiter(maxKeys, validateWindow, clk),
	}
}
