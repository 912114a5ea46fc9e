// Package ratelimit keeps per-key admission state: token buckets for request
// rates and sliding windows for hard per-window caps.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepThreshold = 4096

type KeyedLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	now      func() time.Time
	limiters map[string]*rate.Limiter
}

// New allows burst events at once per key, refilled at rps per second.
func New(rps float64, burst int) *KeyedLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &KeyedLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow consumes a token for key. When denied it reports how long until one is available.
func (l *KeyedLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= sweepThreshold {
			l.sweep(now)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops buckets that have fully refilled; they carry no state.
func (l *KeyedLimiter) sweep(now time.Time) {
	for key, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
}
