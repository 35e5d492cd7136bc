package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time and sleeps on behalf of callers (fakeable in tests).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RateLimiter blocks until a request to origin may be issued.
type RateLimiter interface {
	Wait(ctx context.Context, origin string) error
}

// Extractor pulls best-effort fields out of fetched HTML.
type Extractor interface {
	Extract(ctx context.Context, page []byte, pageURL string) (Fields, error)
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewRunID() (uuid.UUID, error)
}
