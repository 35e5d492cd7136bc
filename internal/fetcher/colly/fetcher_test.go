package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsift/internal/fetcher"
)

func TestTransportFetchesBodyAndHeaders(t *testing.T) {
	t.Parallel()

	seen := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
		w.Header().Set("X-Resp", "ok")
		_, _ = w.Write([]byte("<html><h1>IT Support</h1></html>"))
	}))
	defer srv.Close()

	tr := New(Config{Headers: DefaultHeaders(), Timeout: time.Second})
	resp, err := tr.Fetch(context.Background(), fetcher.Request{
		URL:     srv.URL + "/jobs/1",
		Headers: http.Header{"X-Trace": {"yes"}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "IT Support")
	require.Equal(t, "ok", resp.Headers.Get("X-Resp"))
	require.False(t, resp.UsedHeadless)

	got := <-seen
	require.Equal(t, "en-US,en;q=0.9", got.Get("Accept-Language"))
	require.Equal(t, "yes", got.Get("X-Trace"))
	require.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
}

// TestTransportReturnsErrorStatuses checks non-2xx statuses come back as responses.
func TestTransportReturnsErrorStatuses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := New(Config{Timeout: time.Second})
	for i := 0; i < 2; i++ {
		resp, err := tr.Fetch(context.Background(), fetcher.Request{URL: srv.URL})
		require.NoError(t, err, "revisit %d", i)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestTransportHonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	tr := New(Config{Timeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tr.Fetch(ctx, fetcher.Request{URL: srv.URL})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestTransportNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	tr := New(Config{Timeout: time.Second})
	_, err := tr.Fetch(context.Background(), fetcher.Request{URL: addr})
	require.Error(t, err)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	tr := New(Config{Headers: http.Header{"Accept-Language": {"pt-BR"}}})
	req := fetcher.Request{
		URL:     "https://example.com",
		Headers: http.Header{"Accept-Language": {"en-US"}, "X-Trace": {"yes"}},
	}
	var result fetcher.Response
	var fetchErr error

	hooks := &stubHooks{}
	tr.configureCollectorHooks(hooks, req, time.Unix(0, 0), &result, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	require.Equal(t, "en-US", collyReq.Headers.Get("Accept-Language"))
	require.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	})
	require.Equal(t, http.StatusCreated, result.StatusCode)
	require.Equal(t, "body", string(result.Body))

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
