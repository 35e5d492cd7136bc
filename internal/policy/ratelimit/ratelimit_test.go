package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsift/internal/clock/system"
)

// fakeClock advances virtual time on Sleep and records every requested wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fakeClock) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

// TestWindowDelaysRequestAboveCeiling checks the ceiling+1-th request in one second waits.
func TestWindowDelaysRequestAboveCeiling(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	w := NewWindow(Config{DefaultPerMinute: 3}, clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Wait(ctx, "remoteok.com"))
		clk.Advance(100 * time.Millisecond)
	}
	require.Empty(t, clk.Sleeps())

	require.NoError(t, w.Wait(ctx, "remoteok.com"))
	sleeps := clk.Sleeps()
	require.Len(t, sleeps, 1)
	require.Equal(t, 60*time.Second-300*time.Millisecond, sleeps[0])
}

// TestWindowClearsAfterSleep checks the window is emptied after a throttled wait.
func TestWindowClearsAfterSleep(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	w := NewWindow(Config{DefaultPerMinute: 2}, clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Wait(ctx, "a.example"))
	}
	require.Len(t, clk.Sleeps(), 1)

	// The post-sleep request is the only stamp, so one more fits.
	require.NoError(t, w.Wait(ctx, "a.example"))
	require.Len(t, clk.Sleeps(), 1)
}

func TestWindowPrunesOldStamps(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	w := NewWindow(Config{DefaultPerMinute: 2}, clk)
	ctx := context.Background()

	require.NoError(t, w.Wait(ctx, "a.example"))
	require.NoError(t, w.Wait(ctx, "a.example"))
	clk.Advance(61 * time.Second)
	require.NoError(t, w.Wait(ctx, "a.example"))
	require.Empty(t, clk.Sleeps())
}

func TestWindowOriginsIndependent(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	w := NewWindow(Config{DefaultPerMinute: 1}, clk)
	ctx := context.Background()

	require.NoError(t, w.Wait(ctx, "a.example"))
	require.NoError(t, w.Wait(ctx, "b.example"))
	require.NoError(t, w.Wait(ctx, "c.example"))
	require.Empty(t, clk.Sleeps())
}

func TestWindowConcurrentSameOrigin(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	w := NewWindow(Config{DefaultPerMinute: 5}, clk)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Wait(context.Background(), "shared.example"); err != nil {
				t.Errorf("Wait() error = %v", err)
			}
		}()
	}
	wg.Wait()
	require.Len(t, clk.Sleeps(), 1)
}

func TestWindowHonoursContext(t *testing.T) {
	t.Parallel()

	w := NewWindow(Config{DefaultPerMinute: 1}, system.New())
	require.NoError(t, w.Wait(context.Background(), "slow.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := w.Wait(ctx, "slow.example")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCeilingsOverrides(t *testing.T) {
	t.Parallel()

	c := newCeilings(Config{
		DefaultPerMinute: 30,
		Overrides: map[string]int{
			"linkedin.com":      10,
			"jobs.linkedin.com": 4,
			"indeed.com":        15,
			"broken.example":    0,
		},
	})
	require.Equal(t, 10, c.For("www.linkedin.com"))
	require.Equal(t, 10, c.For("LinkedIn.com"))
	require.Equal(t, 4, c.For("jobs.linkedin.com"))
	require.Equal(t, 15, c.For("uk.indeed.com"))
	require.Equal(t, 30, c.For("notlinkedin.com"))
	require.Equal(t, 30, c.For("broken.example"))
	require.Equal(t, DefaultPerMinute, newCeilings(Config{}).For("x"))
}

func TestBucketWaits(t *testing.T) {
	t.Parallel()

	// 1200/min refills one token every 50ms with a burst of 1200.
	b := NewBucket(Config{DefaultPerMinute: 1200})
	ctx := context.Background()
	for i := 0; i < 1200; i++ {
		require.NoError(t, b.Wait(ctx, "bucket.example"))
	}
	start := time.Now()
	require.NoError(t, b.Wait(ctx, "bucket.example"))
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	start = time.Now()
	require.NoError(t, b.Wait(ctx, "other.example"))
	require.Less(t, time.Since(start), 30*time.Millisecond)
}

func TestNewStrategy(t *testing.T) {
	t.Parallel()

	l, err := New(Config{}, newFakeClock())
	require.NoError(t, err)
	require.IsType(t, &Window{}, l)

	l, err = New(Config{Strategy: "Bucket"}, newFakeClock())
	require.NoError(t, err)
	require.IsType(t, &Bucket{}, l)

	_, err = New(Config{Strategy: "leaky"}, newFakeClock())
	require.Error(t, err)
}
