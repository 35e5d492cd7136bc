package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/jobsift/internal/jobs"
	"github.com/JakeFAU/jobsift/internal/metrics"
)

const windowPeriod = time.Minute

// Window admits at most ceiling requests per origin in any 60 second span.
// When the window is full the caller sleeps until the oldest stamp ages out,
// then the window is cleared, so a burst right after a clear is possible.
type Window struct {
	mu       sync.Mutex
	origins  map[string]*originWindow
	ceilings ceilings
	clock    jobs.Clock
}

// originWindow is guarded by a one-slot channel instead of a mutex so a
// queued caller can give up when its context ends.
type originWindow struct {
	slot    chan struct{}
	ceiling int
	stamps  []time.Time
}

// NewWindow creates a sliding-window limiter.
func NewWindow(cfg Config, clock jobs.Clock) *Window {
	return &Window{
		origins:  make(map[string]*originWindow),
		ceilings: newCeilings(cfg),
		clock:    clock,
	}
}

// Wait blocks until a request to origin is admitted or ctx ends.
func (w *Window) Wait(ctx context.Context, origin string) error {
	ow := w.window(origin)
	select {
	case ow.slot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait for %s: %w", origin, ctx.Err())
	}
	defer func() { <-ow.slot }()

	now := w.clock.Now()
	ow.prune(now)
	if len(ow.stamps) >= ow.ceiling {
		wait := windowPeriod - now.Sub(ow.stamps[0])
		if wait > 0 {
			if err := w.clock.Sleep(ctx, wait); err != nil {
				return fmt.Errorf("rate limit wait for %s: %w", origin, err)
			}
			metrics.ObserveRateLimitWait(origin, wait)
		}
		ow.stamps = ow.stamps[:0]
		now = w.clock.Now()
	}
	ow.stamps = append(ow.stamps, now)
	return nil
}

func (w *Window) window(origin string) *originWindow {
	w.mu.Lock()
	defer w.mu.Unlock()
	ow, ok := w.origins[origin]
	if !ok {
		ow = &originWindow{
			slot:    make(chan struct{}, 1),
			ceiling: w.ceilings.For(origin),
		}
		w.origins[origin] = ow
	}
	return ow
}

func (ow *originWindow) prune(now time.Time) {
	cut := 0
	for cut < len(ow.stamps) && now.Sub(ow.stamps[cut]) >= windowPeriod {
		cut++
	}
	if cut > 0 {
		ow.stamps = append(ow.stamps[:0], ow.stamps[cut:]...)
	}
}
