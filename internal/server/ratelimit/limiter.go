// Package ratelimit implements per-key token bucket limiting for the
// HTTP API tiers.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketTTL is how long an idle, refilled bucket survives before the
// cleanup pass drops it. It doubles as the cleanup cadence.
const bucketTTL = 10 * time.Minute

// Result is the outcome of one rate limit check, with enough detail to
// fill the RateLimit response headers.
type Result struct {
	Allowed    bool
	Limit      int           // requests per window
	Remaining  int           // requests left in current window
	ResetAt    time.Time     // when the bucket will be full again
	RetryAfter time.Duration // how long to wait before retrying (0 if allowed)
}

// Limiter tracks one token bucket per key.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	window  time.Duration
	stop    chan struct{}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing requests tokens per window with
// the given burst capacity. Close releases its cleanup goroutine.
func NewLimiter(requests int, window time.Duration, burst int) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(float64(requests) / window.Seconds()),
		burst:   burst,
		window:  window,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// bucketFor returns the key's bucket, creating it on first sight.
func (l *Limiter) bucketFor(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b
}

// Allow reports whether a request under the given key may proceed.
func (l *Limiter) Allow(key string) Result {
	b := l.bucketFor(key)

	now := time.Now()
	reservation := b.limiter.ReserveN(now, 1)
	allowed := reservation.OK() && reservation.Delay() == 0
	if !allowed && reservation.OK() {
		// Not willing to wait; hand the token back.
		reservation.Cancel()
	}

	tokens := b.limiter.Tokens()
	remaining := max(int(tokens), 0)

	// ResetAt is when the bucket refills completely.
	refill := time.Duration((float64(l.burst) - tokens) / float64(l.rate) * float64(time.Second))

	var retryAfter time.Duration
	if !allowed {
		// At least one token must accrue; never advertise less than 1s.
		retryAfter = max(time.Duration(float64(time.Second)/float64(l.rate)), time.Second)
	}

	return Result{
		Allowed:    allowed,
		Limit:      int(float64(l.rate) * l.window.Seconds()),
		Remaining:  remaining,
		ResetAt:    now.Add(refill),
		RetryAfter: retryAfter,
	}
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(bucketTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup drops buckets that are idle past bucketTTL and fully refilled,
// so a key under sustained pressure is never forgotten early.
func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	stale := time.Now().Add(-bucketTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(stale) && b.limiter.Tokens() >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	close(l.stop)
}
