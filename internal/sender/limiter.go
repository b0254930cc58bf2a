package sender

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces iterations across all workers. A rate of zero disables it.
type Limiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
}

func NewLimiter(rps int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), max(rps, 1))}
}

func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()

	if limiter.Limit() <= 0 {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

// SetRate changes the rate. Workers already waiting pick it up.
func (l *Limiter) SetRate(rps int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter.SetLimit(rate.Limit(rps))
	l.limiter.SetBurst(max(rps, 1))
}

// Rate returns the current rate.
func (l *Limiter) Rate() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int(l.limiter.Limit())
}
