package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/jobsift/internal/metrics"
)

// Bucket manages one token bucket per origin. The bucket refills at
// ceiling/60 tokens per second and holds up to ceiling tokens.
type Bucket struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	ceilings ceilings
}

// NewBucket creates a token-bucket limiter.
func NewBucket(cfg Config) *Bucket {
	return &Bucket{
		limiters: make(map[string]*rate.Limiter),
		ceilings: newCeilings(cfg),
	}
}

// Wait blocks until a token is available for origin, respecting the context.
func (b *Bucket) Wait(ctx context.Context, origin string) error {
	b.mu.Lock()
	limiter, exists := b.limiters[origin]
	if !exists {
		perMinute := b.ceilings.For(origin)
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
		b.limiters[origin] = limiter
	}
	b.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", origin, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitWait(origin, waited)
	}
	return nil
}
