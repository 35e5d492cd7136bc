// Package fetcher implements the retrying, rate-limited, cached GET used by
// every source task. Failures never escape: callers get content or absent.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Request is a single transport-level GET.
type Request struct {
	URL     string
	Headers http.Header
	// WaitSelector lets rendering transports wait for a CSS selector before
	// snapshotting the DOM. Plain HTTP transports ignore it.
	WaitSelector string
}

// Response is what a transport returns for one attempt.
type Response struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Transport performs one network attempt. Non-2xx statuses are returned as a
// Response, not an error; errors mean the request did not complete.
type Transport interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}

// Promoter decides whether a plain response is a JavaScript shell that must
// be re-fetched through a rendering transport.
type Promoter interface {
	ShouldPromote(resp Response, expectSelector string) bool
}

// Store is the cache the fetcher reads through.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, content []byte)
}

// Page is a successfully fetched document.
type Page struct {
	URL           string
	NormalizedURL string
	StatusCode    int
	Body          []byte
	FromCache     bool
	UsedHeadless  bool
}

// RenderMode selects which transport serves a request.
type RenderMode string

// Supported render modes.
const (
	RenderNever  RenderMode = "never"
	RenderAuto   RenderMode = "auto"
	RenderAlways RenderMode = "always"
)

// ParseRenderMode validates a configured render mode; empty means never.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(s) {
	case "", RenderNever:
		return RenderNever, nil
	case RenderAuto, RenderAlways:
		return RenderMode(s), nil
	default:
		return "", fmt.Errorf("unknown render mode %q", s)
	}
}

// StatusError reports a completed request with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
