package fetcher

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/jobs"
	"github.com/JakeFAU/jobsift/internal/metrics"
	"github.com/JakeFAU/jobsift/internal/urlnorm"
)

// Config controls timeouts, retries and politeness.
type Config struct {
	Timeout      time.Duration
	RequestPause time.Duration
	MaxRetries   int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	Headers      http.Header
}

// Fetcher is the cache -> rate limit -> transport -> retry pipeline.
type Fetcher struct {
	cfg      Config
	http     Transport
	headless Transport
	promoter Promoter
	store    Store
	limiter  jobs.RateLimiter
	retry    *RetryPolicy
	clock    jobs.Clock
	logger   *zap.Logger
}

// New wires a Fetcher. headless, promoter and store may be nil.
func New(
	cfg Config,
	httpTransport Transport,
	headless Transport,
	promoter Promoter,
	store Store,
	limiter jobs.RateLimiter,
	clock jobs.Clock,
	logger *zap.Logger,
) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:      cfg,
		http:     httpTransport,
		headless: headless,
		promoter: promoter,
		store:    store,
		limiter:  limiter,
		retry:    NewRetryPolicy(cfg.MaxRetries, cfg.BackoffBase, cfg.BackoffMax),
		clock:    clock,
		logger:   logger,
	}
}

type getOptions struct {
	useCache       bool
	render         RenderMode
	expectSelector string
}

// Option tweaks a single Get call.
type Option func(*getOptions)

// WithoutCache bypasses the cache for both lookup and store.
func WithoutCache() Option {
	return func(o *getOptions) { o.useCache = false }
}

// WithRender selects the transport for this call.
func WithRender(mode RenderMode) Option {
	return func(o *getOptions) { o.render = mode }
}

// WithExpectSelector names a CSS selector the page should contain. Auto mode
// promotes when it is missing; rendering transports wait for it.
func WithExpectSelector(selector string) Option {
	return func(o *getOptions) { o.expectSelector = selector }
}

// Get returns the page at rawURL, or false when it could not be fetched.
// Transient failures are retried; nothing is returned as an error.
func (f *Fetcher) Get(ctx context.Context, rawURL string, opts ...Option) (Page, bool) {
	o := getOptions{useCache: true, render: RenderNever}
	for _, opt := range opts {
		opt(&o)
	}
	normalized := urlnorm.Normalize(rawURL)
	origin := urlnorm.Origin(rawURL)
	logger := f.logger.With(zap.String("url", rawURL), zap.String("origin", origin))

	if o.useCache && f.store != nil {
		if body, ok := f.store.Get(normalized); ok {
			metrics.ObserveFetch(origin, metrics.OutcomeCached, 0)
			return Page{
				URL:           rawURL,
				NormalizedURL: normalized,
				StatusCode:    http.StatusOK,
				Body:          body,
				FromCache:     true,
			}, true
		}
	}

	primary := f.http
	if o.render == RenderAlways {
		if f.headless != nil {
			primary = f.headless
		} else {
			logger.Warn("headless rendering requested but not configured; using http")
		}
	}
	req := Request{URL: rawURL, Headers: f.cfg.Headers, WaitSelector: o.expectSelector}
	resp, ok := f.fetchWithRetry(ctx, primary, req, origin, logger)
	if !ok {
		metrics.ObserveFetch(origin, metrics.OutcomeAbsent, 0)
		return Page{}, false
	}

	if o.render == RenderAuto && f.headless != nil && f.promoter != nil &&
		f.promoter.ShouldPromote(resp, o.expectSelector) {
		logger.Debug("promoting to headless fetch")
		if rendered, ok := f.fetchWithRetry(ctx, f.headless, req, origin, logger); ok {
			resp = rendered
		}
	}

	outcome := metrics.OutcomeOK
	if resp.UsedHeadless {
		outcome = metrics.OutcomeHeadless
	}
	metrics.ObserveFetch(origin, outcome, len(resp.Body))

	if o.useCache && f.store != nil {
		f.store.Put(normalized, resp.Body)
	}
	if err := f.clock.Sleep(ctx, f.cfg.RequestPause); err != nil {
		logger.Debug("request pause interrupted", zap.Error(err))
	}
	return Page{
		URL:           rawURL,
		NormalizedURL: normalized,
		StatusCode:    resp.StatusCode,
		Body:          resp.Body,
		UsedHeadless:  resp.UsedHeadless,
	}, true
}

func (f *Fetcher) fetchWithRetry(
	ctx context.Context,
	transport Transport,
	req Request,
	origin string,
	logger *zap.Logger,
) (Response, bool) {
	for attempt := 0; ; attempt++ {
		if err := f.limiter.Wait(ctx, origin); err != nil {
			logger.Debug("rate limit wait aborted", zap.Error(err))
			return Response{}, false
		}

		reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
		resp, err := transport.Fetch(reqCtx, req)
		cancel()
		if err == nil && isSuccess(resp.StatusCode) {
			return resp, true
		}
		if err == nil {
			err = &StatusError{Code: resp.StatusCode}
		}

		if !f.retry.ShouldRetry(ctx, err, attempt) {
			logger.Warn("fetch failed",
				zap.Int("attempt", attempt+1),
				zap.Int("status", resp.StatusCode),
				zap.Error(err),
			)
			return Response{}, false
		}
		metrics.ObserveRetry(origin)
		backoff := f.retry.Backoff(attempt)
		logger.Debug("retrying fetch",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := f.clock.Sleep(ctx, backoff); err != nil {
			return Response{}, false
		}
	}
}
