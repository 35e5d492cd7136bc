// Package ratelimit throttles requests per network origin. Window is the
// default sliding-window limiter; Bucket is a token-bucket alternative.
package ratelimit

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/jobsift/internal/jobs"
)

// Strategy names accepted by New.
const (
	StrategyWindow = "window"
	StrategyBucket = "bucket"
)

// DefaultPerMinute is the ceiling applied to origins without an override.
const DefaultPerMinute = 30

// Config holds rate limiter configuration.
type Config struct {
	Strategy         string         `mapstructure:"strategy"`
	DefaultPerMinute int            `mapstructure:"default_per_minute"`
	Overrides        map[string]int `mapstructure:"overrides"`
}

// New builds the limiter selected by cfg.Strategy.
func New(cfg Config, clock jobs.Clock) (jobs.RateLimiter, error) {
	switch strings.ToLower(cfg.Strategy) {
	case "", StrategyWindow:
		return NewWindow(cfg, clock), nil
	case StrategyBucket:
		return NewBucket(cfg), nil
	default:
		return nil, fmt.Errorf("unknown rate limit strategy %q", cfg.Strategy)
	}
}

// ceilings resolves the requests-per-minute ceiling for an origin. An override
// matches the host itself or any parent domain; the longest match wins.
type ceilings struct {
	fallback  int
	overrides map[string]int
}

func newCeilings(cfg Config) ceilings {
	fallback := cfg.DefaultPerMinute
	if fallback <= 0 {
		fallback = DefaultPerMinute
	}
	overrides := make(map[string]int, len(cfg.Overrides))
	for host, n := range cfg.Overrides {
		if n > 0 {
			overrides[strings.ToLower(strings.TrimSpace(host))] = n
		}
	}
	return ceilings{fallback: fallback, overrides: overrides}
}

func (c ceilings) For(origin string) int {
	origin = strings.ToLower(origin)
	best, bestLen := c.fallback, -1
	for host, n := range c.overrides {
		if origin != host && !strings.HasSuffix(origin, "."+host) {
			continue
		}
		if len(host) > bestLen {
			best, bestLen = n, len(host)
		}
	}
	return best
}
