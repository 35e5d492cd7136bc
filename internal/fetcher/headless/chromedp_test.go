package headless

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsift/internal/fetcher"
)

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)

	tr, err := New(Config{MaxParallel: 2})
	require.NoError(t, err)
	defer tr.Close()
	require.Equal(t, defaultNavigationTimeout, tr.cfg.NavigationTimeout)
	require.Equal(t, defaultSelectorWait, tr.cfg.SelectorWait)
}

func TestFetchHonoursCanceledContextBeforeLaunch(t *testing.T) {
	t.Parallel()

	tr, err := New(Config{MaxParallel: 1})
	require.NoError(t, err)
	defer tr.Close()

	// Hold the only slot so Fetch blocks on the semaphore, not on Chrome.
	require.NoError(t, tr.slots.Acquire(context.Background(), 1))
	defer tr.slots.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tr.Fetch(ctx, fetcher.Request{URL: "https://example.com"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	headers := toNetworkHeaders(http.Header{
		"Accept-Language": {"en-US"},
		"X-Multi":         {"a", "b"},
		"X-Empty":         {},
	})
	require.Equal(t, "en-US", headers["Accept-Language"])
	require.Equal(t, []string{"a", "b"}, headers["X-Multi"])
	_, ok := headers["X-Empty"]
	require.False(t, ok)
}

func TestDocumentResponseCapture(t *testing.T) {
	t.Parallel()

	doc := &documentResponse{}
	doc.listen(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500, URL: "https://cdn.example.com/app.js"},
	})
	doc.listen(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  200,
			URL:     "https://boards.example.com/jobs",
			Headers: network.Headers{"X-Request-ID": "abc"},
		},
	})
	doc.listen(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404, URL: "https://boards.example.com/frame"},
	})

	status, headers, url := doc.result("https://req", "https://final")
	require.Equal(t, 200, status)
	require.Equal(t, "abc", headers.Get("X-Request-ID"))
	require.Equal(t, "https://boards.example.com/jobs", url)
}

func TestDocumentResponseFallbacks(t *testing.T) {
	t.Parallel()

	doc := &documentResponse{}
	status, headers, url := doc.result("https://req", "")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, headers)
	require.Equal(t, "https://req", url)

	_, _, url = doc.result("https://req", "https://final")
	require.Equal(t, "https://final", url)
}
