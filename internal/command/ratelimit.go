package command

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-(caller, command) token bucket to handler
// execution. Exhaustion yields a *RateLimitError, which the dispatcher maps
// to the RateLimited state.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

// NewRateLimiter allows perSecond executions with the given burst for each
// caller+command pair. A perSecond of zero disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Wrap is the middleware form of the limiter.
func (rl *RateLimiter) Wrap() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) error {
			if rl.limit > 0 {
				lim := rl.bucket(inv.Caller.ID() + "\x00" + inv.Command)
				if !lim.Allow() {
					res := lim.Reserve()
					retry := res.Delay()
					res.Cancel()
					if retry <= 0 {
						retry = minRetryAfter
					}
					return &RateLimitError{RetryAfter: retry}
				}
			}
			return next(ctx, inv)
		}
	}
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets[key] = lim
	}
	return lim
}

// minRetryAfter is a lower bound used when the reservation math yields zero.
const minRetryAfter = time.Second
