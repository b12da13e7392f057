package http

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// rateLimiter counts inbound frames per fixed one-minute window.
type rateLimiter struct {
	mu          sync.Mutex
	clock       clock.Clock
	limit       int
	counter     int
	windowStart time.Time
}

func newRateLimiter(limit int, clk clock.Clock) *rateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &rateLimiter{
		clock:       clk,
		limit:       limit,
		windowStart: clk.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
