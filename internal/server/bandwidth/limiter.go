// Package bandwidth throttles egress streams, mainly attachment downloads.
package bandwidth

import (
	"sync"
	"time"
)

// Limiter is a byte-count token bucket. The bucket holds at most one
// second's worth of bytes. A limit of 0 or less means unlimited.
type Limiter struct {
	mu         sync.Mutex
	limit      int64 // bytes per second
	tokens     float64
	lastRefill time.Time
}

// NewLimiter creates a limiter for the given bytes-per-second budget.
func NewLimiter(bytesPerSecond int64) *Limiter {
	return &Limiter{
		limit:      bytesPerSecond,
		tokens:     float64(bytesPerSecond),
		lastRefill: time.Now(),
	}
}

// Allow consumes n bytes from the budget and returns how long the caller
// should wait before sending them. 0 when the bytes fit the bucket.
func (l *Limiter) Allow(n int64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit <= 0 {
		return 0
	}

	now := time.Now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * float64(l.limit)
	if full := float64(l.limit); l.tokens > full {
		l.tokens = full
	}
	l.lastRefill = now

	if l.tokens >= float64(n) {
		l.tokens -= float64(n)
		return 0
	}

	// Overdraw: charge the deficit as wait time and move the refill
	// clock forward as if the caller had already slept it off.
	deficit := float64(n) - l.tokens
	wait := time.Duration(deficit / float64(l.limit) * float64(time.Second))
	l.tokens = 0
	l.lastRefill = now.Add(wait)
	return wait
}

// Update changes the bytes-per-second budget. 0 means unlimited.
func (l *Limiter) Update(bytesPerSecond int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = bytesPerSecond
	if bytesPerSecond > 0 && l.tokens > float64(bytesPerSecond) {
		l.tokens = float64(bytesPerSecond)
	}
}
