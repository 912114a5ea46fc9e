package ratelimit

import (
	"sync"
	"time"
)

// WindowLimiter admits at most count events per key in any trailing window.
// A token bucket refilling at count/window would admit close to twice that.
type WindowLimiter struct {
	mu     sync.Mutex
	count  int
	window time.Duration
	now    func() time.Time
	events map[string][]time.Time
}

// PerWindow allows count events per key within window, e.g. 10 uploads per 48h.
func PerWindow(count int, window time.Duration) *WindowLimiter {
	if count <= 0 {
		count = 1
	}
	return &WindowLimiter{
		count:  count,
		window: window,
		now:    time.Now,
		events: make(map[string][]time.Time),
	}
}

// Allow records an event for key when the window has room. When denied it
// reports how long until the oldest event leaves the window.
func (l *WindowLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if _, ok := l.events[key]; !ok && len(l.events) >= sweepThreshold {
		l.sweep(now)
	}

	recent := l.prune(l.events[key], now)
	if len(recent) >= l.count {
		l.events[key] = recent
		return false, recent[0].Add(l.window).Sub(now)
	}
	l.events[key] = append(recent, now)
	return true, 0
}

func (l *WindowLimiter) prune(events []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	return events[i:]
}

func (l *WindowLimiter) sweep(now time.Time) {
	for key, events := range l.events {
		if len(l.prune(events, now)) == 0 {
			delete(l.events, key)
		}
	}
}
