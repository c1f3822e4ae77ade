// Package ratelimiter keeps one token bucket per identity (IP, email, ...).
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter manages rate limiting for multiple identities.
// Buckets unused for longer than the expiration time are dropped.
type UserRateLimiter struct {
	mu             sync.Mutex
	limiters       map[string]*entry
	rate           rate.Limit
	burst          int
	expirationTime time.Duration
	stop           chan struct{}
	stopOnce       sync.Once
}

// New creates a limiter allowing ratePerSecond events per second with the given burst.
func New(ratePerSecond float64, burst int, expirationTime time.Duration) *UserRateLimiter {
	rl := &UserRateLimiter{
		limiters:       make(map[string]*entry),
		rate:           rate.Limit(ratePerSecond),
		burst:          burst,
		expirationTime: expirationTime,
		stop:           make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// PerMinute is a convenience constructor for form endpoints.
func PerMinute(n float64, burst int) *UserRateLimiter {
	return New(n/60, burst, time.Hour)
}

func (rl *UserRateLimiter) getLimiter(id string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if e, ok := rl.limiters[id]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[id] = &entry{limiter: l, lastSeen: time.Now()}
	return l
}

// Allow checks if a request should be allowed for a given identity
func (rl *UserRateLimiter) Allow(id string) bool {
	return rl.getLimiter(id).Allow()
}

// RetryAfter is the whole number of seconds until one token is available.
func (rl *UserRateLimiter) RetryAfter() int {
	if rl.rate <= 0 {
		return 60
	}
	return max(int(1.0/float64(rl.rate)), 1)
}

func (rl *UserRateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, e := range rl.limiters {
		if now.Sub(e.lastSeen) > rl.expirationTime {
			delete(rl.limiters, id)
		}
	}
}

func (rl *UserRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *UserRateLimiter) cleanupLoop() {
	interval := rl.expirationTime / 2
	if interval <= 0 || interval > 3*time.Minute {
		interval = 3 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.cleanup(now)
		}
	}
}

// Stop terminates the cleanup goroutine.
func (rl *UserRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
