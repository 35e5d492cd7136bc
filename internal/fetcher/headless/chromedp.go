// Package headless renders JavaScript-heavy job boards through headless
// Chrome so their client-side listings can be parsed.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/jobsift/internal/fetcher"
)

const (
	defaultNavigationTimeout = 25 * time.Second
	defaultSelectorWait      = 5 * time.Second
	settleDelay              = 500 * time.Millisecond
)

// Config controls the headless transport.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	// SelectorWait bounds how long a render waits for Request.WaitSelector
	// before snapshotting whatever has loaded.
	SelectorWait time.Duration
}

// Transport implements fetcher.Transport with chromedp. Browser tabs are
// bounded by a weighted semaphore.
type Transport struct {
	cfg         Config
	slots       *semaphore.Weighted
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New starts an exec allocator; Chrome itself launches on first use.
func New(cfg Config) (*Transport, error) {
	if cfg.MaxParallel <= 0 {
		return nil, errors.New("headless max parallel must be > 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.SelectorWait <= 0 {
		cfg.SelectorWait = defaultSelectorWait
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Transport{
		cfg:         cfg,
		slots:       semaphore.NewWeighted(int64(cfg.MaxParallel)),
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the browser down.
func (t *Transport) Close() {
	t.allocCancel()
}

// Fetch navigates to request.URL and returns the rendered DOM.
func (t *Transport) Fetch(ctx context.Context, request fetcher.Request) (fetcher.Response, error) {
	if err := t.slots.Acquire(ctx, 1); err != nil {
		return fetcher.Response{}, fmt.Errorf("headless slot wait: %w", err)
	}
	defer t.slots.Release(1)

	tabCtx, closeTab := chromedp.NewContext(t.allocator)
	defer closeTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, t.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	doc := &documentResponse{}
	chromedp.ListenTarget(tabCtx, doc.listen)

	start := time.Now()
	var html, finalURL string
	err := chromedp.Run(tabCtx,
		t.prepare(request.Headers),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		t.waitFor(request.WaitSelector),
		chromedp.Sleep(settleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fetcher.Response{}, fmt.Errorf("headless fetch canceled: %w", ctxErr)
		}
		return fetcher.Response{}, fmt.Errorf("chromedp run: %w", err)
	}

	status, headers, url := doc.result(request.URL, finalURL)
	return fetcher.Response{
		URL:          url,
		StatusCode:   status,
		Headers:      headers,
		Body:         []byte(html),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

func (t *Transport) prepare(headers http.Header) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if t.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(t.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

// waitFor gives client-side rendering a bounded chance to produce selector.
// Timing out is not an error; the caller decides whether the DOM is useful.
func (t *Transport) waitFor(selector string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if selector == "" {
			return nil
		}
		waitCtx, cancel := context.WithTimeout(ctx, t.cfg.SelectorWait)
		defer cancel()
		if err := chromedp.WaitReady(selector, chromedp.ByQuery).Do(waitCtx); err != nil && ctx.Err() != nil {
			return fmt.Errorf("wait for %q: %w", selector, ctx.Err())
		}
		return nil
	})
}

// documentResponse records the status and headers of the main document.
type documentResponse struct {
	mu      sync.Mutex
	status  int
	headers http.Header
	url     string
}

func (d *documentResponse) listen(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range resp.Response.Headers {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []any:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	// Redirect chains emit several documents; keep the first final answer.
	if d.status != 0 && d.status < 300 {
		return
	}
	d.status = int(resp.Response.Status)
	d.headers = headers
	d.url = resp.Response.URL
}

func (d *documentResponse) result(requestURL, finalURL string) (int, http.Header, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, headers, url := d.status, d.headers, d.url
	if url == "" {
		url = finalURL
	}
	if url == "" {
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	if headers == nil {
		headers = http.Header{}
	}
	return status, headers, url
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		switch len(values) {
		case 0:
		case 1:
			headers[key] = values[0]
		default:
			headers[key] = append([]string(nil), values...)
		}
	}
	return headers
}
