package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsift/internal/orchestrator"
	"github.com/JakeFAU/jobsift/internal/report"
	"github.com/JakeFAU/jobsift/internal/source"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobsift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	require.Equal(t, 2, cfg.HTTP.MaxRetries)
	require.Equal(t, time.Second, cfg.HTTP.RequestPause)
	require.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	require.Equal(t, "window", cfg.RateLimit.Strategy)
	require.Equal(t, 8, cfg.Pipeline.Concurrency)
	require.Equal(t, 45*time.Second, cfg.Pipeline.TaskTimeout)
	require.Equal(t, 2, cfg.Filter.Experience.MaxYears)
	require.True(t, cfg.Filter.Level.RejectUnspecified)
	require.InDelta(t, 0.85, cfg.Dedup.Threshold, 1e-9)
	require.Equal(t, "local", cfg.Report.Destination)
	require.Equal(t, "data/reports", cfg.Report.Dir)
	require.Equal(t, report.FormatMarkdown, cfg.ReportFormat())
	require.Equal(t, orchestrator.SortPriority, cfg.SortKey())
	require.Equal(t, ":8080", cfg.Server.Addr)

	require.Len(t, cfg.Sources, len(source.DefaultSources()))
	for _, def := range cfg.Sources {
		require.NotZero(t, def.MaxLinks, def.Name)
		require.NotEmpty(t, def.Render, def.Name)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
logging:
  development: true
  level: debug
http:
  timeout: 30s
  max_retries: 4
  backoff_base: 100ms
  backoff_max: 2s
rate_limit:
  strategy: bucket
  default_per_minute: 20
  overrides:
    - host: remoteok.com
      per_minute: 6
headless:
  enabled: true
  max_parallel: 3
pipeline:
  concurrency: 2
  sort_by: newest
filter:
  experience:
    max_years: 3
  level:
    reject_unspecified: false
  keywords:
    area: ["help desk", "service desk"]
report:
  format: json
  destination: gcs
  gcs_bucket: job-reports
sources:
  - name: Example
    listing_url: https://jobs.example.com/search?q={query}
    query: help desk
    link_selector: a.job
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.True(t, cfg.Logging.Development)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	require.Equal(t, 100*time.Millisecond, cfg.HTTP.BackoffBase)
	require.Equal(t, 3, cfg.Headless.MaxParallel)
	require.Equal(t, 25*time.Second, cfg.Headless.NavTimeout)
	require.Equal(t, orchestrator.SortNewest, cfg.SortKey())
	require.Equal(t, 3, cfg.Filter.Experience.MaxYears)
	require.False(t, cfg.Filter.Level.RejectUnspecified)
	require.Equal(t, []string{"help desk", "service desk"}, cfg.Filter.Keywords.Area)
	require.Equal(t, report.FormatJSON, cfg.ReportFormat())
	require.Equal(t, "job-reports", cfg.Report.GCSBucket)

	rl := cfg.RateLimiterConfig()
	require.Equal(t, "bucket", rl.Strategy)
	require.Equal(t, 20, rl.DefaultPerMinute)
	require.Equal(t, map[string]int{"remoteok.com": 6}, rl.Overrides)

	require.Len(t, cfg.Sources, 1)
	def := cfg.Sources[0]
	require.Equal(t, "Example", def.Name)
	require.Equal(t, source.ListingLinks, def.Listing)
	require.Equal(t, source.DefaultMaxLinks, def.MaxLinks)
	require.Equal(t, "https://jobs.example.com/search?q=help+desk", def.URL())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestLoadRejectsMalformedSource(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
sources:
  - name: Broken
    listing_url: ftp://jobs.example.com
    link_selector: a
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "invalid sources")
}

func TestLoadRejectsAllDisabled(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
sources:
  - name: Off
    listing_url: https://jobs.example.com
    link_selector: a
    enabled: false
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "no enabled sources")
}

func TestValidateRanges(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	cases := []struct {
		want   string
		mutate func(c *Config)
	}{
		{"http.timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"http.max_retries", func(c *Config) { c.HTTP.MaxRetries = 11 }},
		{"http.backoff_max", func(c *Config) { c.HTTP.BackoffMax = time.Millisecond }},
		{"cache.ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"rate_limit.strategy", func(c *Config) { c.RateLimit.Strategy = "leaky" }},
		{"rate_limit.overrides[0].host", func(c *Config) { c.RateLimit.Overrides = []RateOverride{{PerMinute: 5}} }},
		{"headless.max_parallel", func(c *Config) { c.Headless = HeadlessConfig{Enabled: true} }},
		{"pipeline.concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }},
		{"pipeline.sort_by", func(c *Config) { c.Pipeline.SortBy = "random" }},
		{"dedup.threshold", func(c *Config) { c.Dedup.Threshold = 1.5 }},
		{"report.format", func(c *Config) { c.Report.Format = "pdf" }},
		{"report.gcs_bucket", func(c *Config) { c.Report.Destination = DestinationGCS }},
		{"report.destination", func(c *Config) { c.Report.Destination = "s3" }},
		{"server.addr", func(c *Config) { c.Server.Addr = "" }},
	}
	for _, tc := range cases {
		cfg := base
		cfg.Sources = source.DefaultSources()
		tc.mutate(&cfg)
		require.ErrorContains(t, cfg.Validate(), tc.want)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("JOBSIFT_PIPELINE_CONCURRENCY", "3")
	t.Setenv("JOBSIFT_REPORT_FORMAT", "yaml")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Pipeline.Concurrency)
	require.Equal(t, report.FormatYAML, cfg.ReportFormat())
}
