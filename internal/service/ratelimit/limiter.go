package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (symbol, client, route).
type Limiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
}

func New() *Limiter { return &Limiter{m: make(map[string]*rate.Limiter)} }

// Allow reports whether one event may pass for key at the given rate.
// Burst defaults to the ceiling of the per-second rate.
func (l *Limiter) Allow(key string, perSec float64, burst int) bool {
	if perSec <= 0 {
		return true
	}
	if burst < 1 {
		burst = int(perSec)
		if burst < 1 {
			burst = 1
		}
	}

	l.mu.Lock()
	lim, ok := l.m[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(perSec), burst)
		l.m[key] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
