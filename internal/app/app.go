// Package app builds the long-lived services from configuration and runs the
// pipeline: every enabled source, dedup, sort, and the report.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/cache"
	"github.com/JakeFAU/jobsift/internal/classify"
	"github.com/JakeFAU/jobsift/internal/clock/system"
	"github.com/JakeFAU/jobsift/internal/config"
	"github.com/JakeFAU/jobsift/internal/dedup"
	"github.com/JakeFAU/jobsift/internal/extract"
	"github.com/JakeFAU/jobsift/internal/fetcher"
	collyfetcher "github.com/JakeFAU/jobsift/internal/fetcher/colly"
	"github.com/JakeFAU/jobsift/internal/fetcher/headless"
	uuidgen "github.com/JakeFAU/jobsift/internal/id/uuid"
	"github.com/JakeFAU/jobsift/internal/jobs"
	"github.com/JakeFAU/jobsift/internal/orchestrator"
	"github.com/JakeFAU/jobsift/internal/policy/ratelimit"
	"github.com/JakeFAU/jobsift/internal/progress"
	"github.com/JakeFAU/jobsift/internal/progress/sinks"
	"github.com/JakeFAU/jobsift/internal/report"
	"github.com/JakeFAU/jobsift/internal/source"
	"github.com/JakeFAU/jobsift/internal/storage/gcs"
	"github.com/JakeFAU/jobsift/internal/storage/local"
	"github.com/JakeFAU/jobsift/internal/storage/memory"
)

// Outcome is what one run produced.
type Outcome struct {
	Report  report.Report
	URI     string
	// Elapsed covers the sources only, not rendering the report.
	Elapsed time.Duration
}

// Failed counts the sources that contributed nothing because of an error.
func (o Outcome) Failed() int {
	n := 0
	for _, r := range o.Report.Outcomes {
		if r.Failed() {
			n++
		}
	}
	return n
}

type options struct {
	store      report.BlobStore
	transport  fetcher.Transport
	registerer prometheus.Registerer
	clock      jobs.Clock
	ids        jobs.IDGenerator
}

// Option overrides a service New would otherwise build from config.
type Option func(*options)

// WithBlobStore replaces the configured report destination.
func WithBlobStore(store report.BlobStore) Option {
	return func(o *options) { o.store = store }
}

// WithTransport replaces the colly HTTP transport.
func WithTransport(t fetcher.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithRegisterer registers the progress collectors somewhere other than the
// default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithClock replaces the system clock.
func WithClock(c jobs.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator replaces the UUIDv7 run ID generator.
func WithIDGenerator(ids jobs.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// App holds the services shared by every run. The page cache is not one of
// them: each run starts with an empty cache.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	clock     jobs.Clock
	ids       jobs.IDGenerator
	http      fetcher.Transport
	headless  fetcher.Transport
	promoter  fetcher.Promoter
	limiter   jobs.RateLimiter
	extractor jobs.Extractor
	filter    *classify.Filter
	deduper   *dedup.Deduplicator
	hub       *progress.Hub
	writer    *report.Writer
	sources   []source.Definition
	closers   []func() error
}

// New builds every service from a validated cfg. Close releases them.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if o.clock == nil {
		o.clock = system.New()
	}
	if o.ids == nil {
		o.ids = uuidgen.New()
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		clock:     o.clock,
		ids:       o.ids,
		extractor: extract.New(cfg.Extract.MaxDescription),
		filter:    classify.New(classify.RulesFromConfig(cfg.Filter)),
		deduper:   dedup.New(cfg.Dedup.Threshold, cfg.Dedup.WarnAbove, logger.Named("dedup")),
		sources:   source.Enabled(cfg.Sources),
	}
	if len(a.sources) == 0 {
		return nil, errors.New("no enabled sources")
	}

	limiter, err := ratelimit.New(cfg.RateLimiterConfig(), a.clock)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	a.limiter = limiter

	a.http = o.transport
	if a.http == nil {
		a.http = collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.HTTP.Timeout,
			Headers:   collyfetcher.DefaultHeaders(),
		})
	}
	if cfg.Headless.Enabled {
		browser, err := headless.New(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: cfg.Headless.NavTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("headless transport: %w", err)
		}
		a.headless = browser
		a.promoter = fetcher.NewHeuristic(cfg.Headless.PromotionThreshold)
		a.closers = append(a.closers, func() error {
			browser.Close()
			return nil
		})
	}

	store := o.store
	if store == nil {
		store, err = openBlobStore(ctx, cfg.Report)
		if err != nil {
			a.closeAll()
			return nil, err
		}
		if closer, ok := store.(interface{ Close() error }); ok {
			a.closers = append(a.closers, closer.Close)
		}
	}
	a.writer, err = report.NewWriter(store, report.Config{
		Format:        cfg.ReportFormat(),
		PriorityBonus: cfg.Report.PriorityBonus,
	}, logger.Named("report"))
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("report writer: %w", err)
	}

	promSink, err := sinks.NewPrometheusSink(o.registerer)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("progress metrics: %w", err)
	}
	a.hub = progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")), promSink)

	logger.Info("services ready",
		zap.Int("sources", len(a.sources)),
		zap.Bool("headless", cfg.Headless.Enabled),
		zap.String("report_destination", cfg.Report.Destination),
		zap.String("report_format", string(a.writer.Format())),
	)
	return a, nil
}

func openBlobStore(ctx context.Context, cfg config.ReportConfig) (report.BlobStore, error) {
	switch cfg.Destination {
	case config.DestinationMemory:
		return memory.NewBlobStore(), nil
	case config.DestinationGCS:
		store, err := gcs.Dial(ctx, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.Prefix})
		if err != nil {
			return nil, fmt.Errorf("report destination: %w", err)
		}
		return store, nil
	case config.DestinationLocal, "":
		store, err := local.New(local.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, fmt.Errorf("report destination: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown report destination %q", cfg.Destination)
	}
}

// Sources lists the enabled sources in configuration order.
func (a *App) Sources() []source.Definition {
	return a.sources
}

// NewRunID issues an ID for RunWithID.
func (a *App) NewRunID() (uuid.UUID, error) {
	return a.ids.NewRunID()
}

// Run executes one run with a fresh ID.
func (a *App) Run(ctx context.Context) (Outcome, error) {
	runID, err := a.ids.NewRunID()
	if err != nil {
		return Outcome{}, fmt.Errorf("run id: %w", err)
	}
	return a.RunWithID(ctx, runID)
}

// RunWithID runs every enabled source and writes the report. Source
// failures are part of the Outcome; only a report that cannot be stored is
// an error.
func (a *App) RunWithID(ctx context.Context, runID uuid.UUID) (Outcome, error) {
	pages := fetcher.New(
		fetcher.Config{
			Timeout:      a.cfg.HTTP.Timeout,
			RequestPause: a.cfg.HTTP.RequestPause,
			MaxRetries:   a.cfg.HTTP.MaxRetries,
			BackoffBase:  a.cfg.HTTP.BackoffBase,
			BackoffMax:   a.cfg.HTTP.BackoffMax,
			Headers:      collyfetcher.DefaultHeaders(),
		},
		a.http,
		a.headless,
		a.promoter,
		cache.New(a.cfg.Cache.TTL, a.clock),
		a.limiter,
		a.clock,
		a.logger.Named("fetcher"),
	)
	task := source.NewTask(pages, a.extractor, a.filter, a.clock,
		a.cfg.Pipeline.DetailConcurrency, a.logger.Named("source"))
	orch := orchestrator.New(
		orchestrator.Config{
			Concurrency: a.cfg.Pipeline.Concurrency,
			TaskTimeout: a.cfg.Pipeline.TaskTimeout,
			SortBy:      a.cfg.SortKey(),
		},
		task,
		a.deduper,
		a.clock,
		a.logger.Named("orchestrator"),
		orchestrator.WithEmitter(a.hub),
	)

	res := orch.RunWithID(ctx, runID, a.sources)
	out := Outcome{
		Report: report.Report{
			RunID:       res.RunID,
			GeneratedAt: a.clock.Now(),
			Records:     res.Records,
			Outcomes:    res.Outcomes,
		},
		Elapsed: res.Elapsed,
	}
	uri, err := a.writer.Write(context.WithoutCancel(ctx), out.Report)
	if err != nil {
		return out, err
	}
	out.URI = uri
	return out, nil
}

// Close flushes progress events and releases the browser and storage
// clients.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close progress hub: %w", err))
		}
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
