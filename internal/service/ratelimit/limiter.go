package ratelimit

import (
	"sync"
	"time"
)

// sweepInterval is how often Allow drops buckets that have refilled.
const sweepInterval = time.Minute

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*bucket
	capacity float64
	rate     float64 // tokens per second
	now      func() time.Time
	swept    time.Time
}

// New creates a limiter allowing burst requests at once and rate per second
// after that.
func New(rate float64, burst int) *Limiter {
	return &Limiter{
		m:        make(map[string]*bucket),
		capacity: float64(burst),
		rate:     rate,
		now:      time.Now,
	}
}

// WithClock replaces the refill clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) >= sweepInterval {
		l.sweep(now)
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.rate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// sweep removes buckets that would be full by now. A fresh bucket starts
// full, so dropping one does not change what Allow returns for its key.
func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.m {
		if b.tokens+now.Sub(b.last).Seconds()*l.rate >= l.capacity {
			delete(l.m, key)
		}
	}
	l.swept = now
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
