package fetcher

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net/http"
	"time"
)

// TransientStatuses are the status codes worth retrying.
var TransientStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryPolicy retries transient statuses and network errors with jittered
// exponential backoff.
type RetryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	transient  map[int]struct{}
}

// NewRetryPolicy builds a policy allowing maxRetries retries after the first attempt.
func NewRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	transient := make(map[int]struct{}, len(TransientStatuses))
	for _, code := range TransientStatuses {
		transient[code] = struct{}{}
	}
	return &RetryPolicy{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		transient:  transient,
	}
}

// ShouldRetry decides whether attempt (zero-based) may be followed by another.
// Cancellation of the parent context is never retried.
func (p *RetryPolicy) ShouldRetry(ctx context.Context, err error, attempt int) bool {
	if err == nil || attempt >= p.maxRetries {
		return false
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		_, ok := p.transient[statusErr.Code]
		return ok
	}
	// Per-request timeouts, resets and other transport failures.
	return true
}

// Backoff returns the wait before the retry that follows attempt.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
