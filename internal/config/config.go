// Package config loads and validates jobsift configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/jobsift/internal/classify"
	"github.com/JakeFAU/jobsift/internal/logging"
	"github.com/JakeFAU/jobsift/internal/orchestrator"
	"github.com/JakeFAU/jobsift/internal/policy/ratelimit"
	"github.com/JakeFAU/jobsift/internal/report"
	"github.com/JakeFAU/jobsift/internal/source"
)

// EnvPrefix namespaces environment overrides, e.g. JOBSIFT_HTTP_TIMEOUT.
const EnvPrefix = "JOBSIFT"

// Report destinations.
const (
	DestinationLocal  = "local"
	DestinationMemory = "memory"
	DestinationGCS    = "gcs"
)

// Config captures every knob loaded via Viper.
type Config struct {
	Logging   logging.Config      `mapstructure:"logging"`
	HTTP      HTTPConfig          `mapstructure:"http"`
	Cache     CacheConfig         `mapstructure:"cache"`
	RateLimit RateLimitConfig     `mapstructure:"rate_limit"`
	Headless  HeadlessConfig      `mapstructure:"headless"`
	Pipeline  PipelineConfig      `mapstructure:"pipeline"`
	Filter    classify.Config     `mapstructure:"filter"`
	Dedup     DedupConfig         `mapstructure:"dedup"`
	Extract   ExtractConfig       `mapstructure:"extract"`
	Report    ReportConfig        `mapstructure:"report"`
	Server    ServerConfig        `mapstructure:"server"`
	Sources   []source.Definition `mapstructure:"sources"`
}

// HTTPConfig configures the plain HTTP transport and retries.
type HTTPConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	BackoffMax   time.Duration `mapstructure:"backoff_max"`
	RequestPause time.Duration `mapstructure:"request_pause"`
}

// CacheConfig sets the page cache freshness window.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateOverride caps one host (and its subdomains).
type RateOverride struct {
	Host      string `mapstructure:"host"`
	PerMinute int    `mapstructure:"per_minute"`
}

// RateLimitConfig selects the limiter. Overrides are a list because Viper
// splits map keys on dots, which every host name contains.
type RateLimitConfig struct {
	Strategy         string         `mapstructure:"strategy"`
	DefaultPerMinute int            `mapstructure:"default_per_minute"`
	Overrides        []RateOverride `mapstructure:"overrides"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	MaxParallel        int           `mapstructure:"max_parallel"`
	NavTimeout         time.Duration `mapstructure:"nav_timeout"`
	PromotionThreshold int           `mapstructure:"promotion_threshold"`
}

// PipelineConfig bounds a run.
type PipelineConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	TaskTimeout       time.Duration `mapstructure:"task_timeout"`
	DetailConcurrency int           `mapstructure:"detail_concurrency"`
	SortBy            string        `mapstructure:"sort_by"`
}

// DedupConfig tunes the title similarity pass.
type DedupConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	WarnAbove int     `mapstructure:"warn_above"`
}

// ExtractConfig tunes detail page extraction.
type ExtractConfig struct {
	MaxDescription int `mapstructure:"max_description"`
}

// ReportConfig selects the report format and destination.
type ReportConfig struct {
	Format        string `mapstructure:"format"`
	Destination   string `mapstructure:"destination"`
	Dir           string `mapstructure:"dir"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	Prefix        string `mapstructure:"prefix"`
	PriorityBonus int    `mapstructure:"priority_bonus"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from defaults, an optional file, and the environment.
// An empty source list selects the built-in boards.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = source.DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_base", 500*time.Millisecond)
	v.SetDefault("http.backoff_max", 8*time.Second)
	v.SetDefault("http.request_pause", time.Second)
	v.SetDefault("cache.ttl", 2*time.Hour)
	v.SetDefault("rate_limit.strategy", ratelimit.StrategyWindow)
	v.SetDefault("rate_limit.default_per_minute", ratelimit.DefaultPerMinute)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout", 25*time.Second)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("pipeline.concurrency", orchestrator.DefaultConcurrency)
	v.SetDefault("pipeline.task_timeout", orchestrator.DefaultTaskTimeout)
	v.SetDefault("pipeline.detail_concurrency", 4)
	v.SetDefault("pipeline.sort_by", string(orchestrator.SortPriority))
	v.SetDefault("filter.experience.max_years", classify.DefaultMaxExperienceYears)
	v.SetDefault("filter.certifications.max", classify.DefaultMaxCertifications)
	v.SetDefault("filter.level.reject_unspecified", true)
	v.SetDefault("dedup.threshold", 0.85)
	v.SetDefault("dedup.warn_above", 1000)
	v.SetDefault("extract.max_description", 3000)
	v.SetDefault("report.format", string(report.FormatMarkdown))
	v.SetDefault("report.destination", DestinationLocal)
	v.SetDefault("report.dir", "data/reports")
	v.SetDefault("report.prefix", "reports")
	v.SetDefault("report.priority_bonus", report.DefaultPriorityBonus)
	v.SetDefault("server.addr", ":8080")
}

// Validate enforces ranges, then checks the source definitions. On success
// Sources holds the definitions with their defaults applied.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.HTTP.Timeout > 0, "http.timeout must be > 0")
	check(c.HTTP.MaxRetries >= 0 && c.HTTP.MaxRetries <= 10, "http.max_retries must be between 0 and 10")
	check(c.HTTP.BackoffBase > 0, "http.backoff_base must be > 0")
	check(c.HTTP.BackoffMax >= c.HTTP.BackoffBase, "http.backoff_max must be >= http.backoff_base")
	check(c.HTTP.RequestPause >= 0, "http.request_pause must be >= 0")
	check(c.Cache.TTL > 0, "cache.ttl must be > 0")

	switch strings.ToLower(c.RateLimit.Strategy) {
	case ratelimit.StrategyWindow, ratelimit.StrategyBucket:
	default:
		check(false, fmt.Sprintf("rate_limit.strategy %q must be window or bucket", c.RateLimit.Strategy))
	}
	check(c.RateLimit.DefaultPerMinute > 0, "rate_limit.default_per_minute must be > 0")
	for i, o := range c.RateLimit.Overrides {
		check(strings.TrimSpace(o.Host) != "", fmt.Sprintf("rate_limit.overrides[%d].host is required", i))
		check(o.PerMinute > 0, fmt.Sprintf("rate_limit.overrides[%d].per_minute must be > 0", i))
	}

	if c.Headless.Enabled {
		check(c.Headless.MaxParallel > 0, "headless.max_parallel must be > 0 when headless is enabled")
		check(c.Headless.NavTimeout > 0, "headless.nav_timeout must be > 0 when headless is enabled")
	}

	check(c.Pipeline.Concurrency > 0, "pipeline.concurrency must be > 0")
	check(c.Pipeline.TaskTimeout > 0, "pipeline.task_timeout must be > 0")
	check(c.Pipeline.DetailConcurrency > 0, "pipeline.detail_concurrency must be > 0")
	if _, err := orchestrator.ParseSortKey(c.Pipeline.SortBy); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.sort_by: %w", err))
	}

	check(c.Filter.Experience.MaxYears >= 0, "filter.experience.max_years must be >= 0")
	check(c.Filter.Certifications.Max >= 0, "filter.certifications.max must be >= 0")
	check(c.Dedup.Threshold > 0 && c.Dedup.Threshold <= 1, "dedup.threshold must be in (0, 1]")
	check(c.Dedup.WarnAbove > 0, "dedup.warn_above must be > 0")
	check(c.Extract.MaxDescription > 0, "extract.max_description must be > 0")

	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		errs = append(errs, fmt.Errorf("report.format: %w", err))
	}
	switch c.Report.Destination {
	case DestinationLocal:
		check(strings.TrimSpace(c.Report.Dir) != "", "report.dir is required for the local destination")
	case DestinationGCS:
		check(strings.TrimSpace(c.Report.GCSBucket) != "", "report.gcs_bucket is required for the gcs destination")
	case DestinationMemory:
	default:
		check(false, fmt.Sprintf("report.destination %q must be local, memory or gcs", c.Report.Destination))
	}
	check(c.Report.PriorityBonus > 0, "report.priority_bonus must be > 0")
	check(strings.TrimSpace(c.Server.Addr) != "", "server.addr is required")

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	sources, err := source.Validate(c.Sources)
	if err != nil {
		return err
	}
	if len(source.Enabled(sources)) == 0 {
		return errors.New("invalid config: no enabled sources")
	}
	c.Sources = sources
	return nil
}

// RateLimiterConfig converts the section into the limiter's own config.
func (c Config) RateLimiterConfig() ratelimit.Config {
	overrides := make(map[string]int, len(c.RateLimit.Overrides))
	for _, o := range c.RateLimit.Overrides {
		overrides[strings.ToLower(strings.TrimSpace(o.Host))] = o.PerMinute
	}
	return ratelimit.Config{
		Strategy:         c.RateLimit.Strategy,
		DefaultPerMinute: c.RateLimit.DefaultPerMinute,
		Overrides:        overrides,
	}
}

// SortKey returns the validated sort key.
func (c Config) SortKey() orchestrator.SortKey {
	key, err := orchestrator.ParseSortKey(c.Pipeline.SortBy)
	if err != nil {
		return orchestrator.SortPriority
	}
	return key
}

// ReportFormat returns the validated report format.
func (c Config) ReportFormat() report.Format {
	format, err := report.ParseFormat(c.Report.Format)
	if err != nil {
		return report.FormatMarkdown
	}
	return format
}
