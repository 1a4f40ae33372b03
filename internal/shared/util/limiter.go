package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a token-count interface.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a token bucket limiter refilling r tokens per second
// with burst b. A non-positive r disables limiting.
func NewLimiter(r float64, b int) *Limiter {
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	if b < 1 {
		b = 1
	}
	return &Limiter{inner: rate.NewLimiter(limit, b)}
}

// Allow reports whether n tokens are available now, consuming them if so.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}
