// Package orchestrator runs every configured source concurrently, isolates
// their failures, and merges what they found into one deduplicated, sorted
// result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobsift/internal/jobs"
	"github.com/JakeFAU/jobsift/internal/metrics"
	"github.com/JakeFAU/jobsift/internal/progress"
	"github.com/JakeFAU/jobsift/internal/source"
)

// Defaults.
const (
	DefaultConcurrency = 8
	DefaultTaskTimeout = 45 * time.Second
)

// Runner executes one source. source.Task implements it.
type Runner interface {
	Run(ctx context.Context, def source.Definition) ([]jobs.Record, error)
}

// Deduper collapses duplicate records. dedup.Deduplicator implements it.
type Deduper interface {
	Dedupe(records []jobs.Record) []jobs.Record
}

// Config bounds a run.
type Config struct {
	Concurrency int
	TaskTimeout time.Duration
	SortBy      SortKey
}

// Result is the outcome of RunAll. Outcomes follow the order of the sources
// passed in.
type Result struct {
	RunID    uuid.UUID
	Records  []jobs.Record
	Outcomes []jobs.SourceResult
	Elapsed  time.Duration
}

// Orchestrator schedules source tasks on a bounded pool.
type Orchestrator struct {
	cfg     Config
	runner  Runner
	deduper Deduper
	clock   jobs.Clock
	ids     jobs.IDGenerator
	events  progress.Emitter
	logger  *zap.Logger
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithEmitter sends run and source lifecycle events to e.
func WithEmitter(e progress.Emitter) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.events = e
		}
	}
}

// WithIDGenerator overrides how run IDs are issued.
func WithIDGenerator(ids jobs.IDGenerator) Option {
	return func(o *Orchestrator) {
		if ids != nil {
			o.ids = ids
		}
	}
}

// New wires an Orchestrator.
func New(cfg Config, runner Runner, deduper Deduper, clock jobs.Clock, logger *zap.Logger, opts ...Option) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:     cfg,
		runner:  runner,
		deduper: deduper,
		clock:   clock,
		ids:     randomIDs{},
		events:  progress.Discard{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll runs one task per source. A failing, panicking or timed-out source
// contributes no records and never cancels its siblings. Cancelling ctx
// stops every task; RunAll still returns the outcomes gathered so far.
func (o *Orchestrator) RunAll(ctx context.Context, sources []source.Definition) Result {
	runID, err := o.ids.NewRunID()
	if err != nil {
		o.logger.Warn("run id generation failed; using random id", zap.Error(err))
		runID = uuid.New()
	}
	return o.RunWithID(ctx, runID, sources)
}

// RunWithID is RunAll with a run ID issued by the caller.
func (o *Orchestrator) RunWithID(ctx context.Context, runID uuid.UUID, sources []source.Definition) Result {
	start := o.clock.Now()
	logger := o.logger.With(zap.String("run_id", runID.String()))
	o.emit(progress.Event{RunID: runID, Stage: progress.StageRunStart})
	logger.Info("run started", zap.Int("sources", len(sources)))

	var (
		mu        sync.Mutex
		collected []jobs.Record
	)
	outcomes := make([]jobs.SourceResult, len(sources))

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, def := range sources {
		g.Go(func() error {
			outcome := o.runOne(ctx, runID, def, logger)
			outcomes[i] = outcome
			if !outcome.Failed() {
				mu.Lock()
				collected = append(collected, outcome.Records...)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	records := collected
	if o.deduper != nil {
		records = o.deduper.Dedupe(collected)
	}
	Sort(records, o.cfg.SortBy)

	elapsed := o.clock.Now().Sub(start)
	o.emit(progress.Event{RunID: runID, Stage: progress.StageRunDone, Records: len(records), Dur: elapsed})
	logger.Info("run finished",
		zap.Int("collected", len(collected)),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", elapsed),
	)
	return Result{RunID: runID, Records: records, Outcomes: outcomes, Elapsed: elapsed}
}

// runOne applies the per-task timeout. The task goroutine is abandoned, not
// awaited, once the deadline passes; its late result is dropped.
func (o *Orchestrator) runOne(ctx context.Context, runID uuid.UUID, def source.Definition, logger *zap.Logger) jobs.SourceResult {
	metrics.IncActiveTasks()
	defer metrics.DecActiveTasks()

	start := o.clock.Now()
	o.emit(progress.Event{RunID: runID, Stage: progress.StageSourceStart, Source: def.Name})

	taskCtx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout)
	defer cancel()

	type taskResult struct {
		records []jobs.Record
		err     error
	}
	done := make(chan taskResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- taskResult{err: fmt.Errorf("source %s: %w: %v", def.Name, jobs.ErrTaskPanic, r)}
			}
		}()
		records, err := o.runner.Run(taskCtx, def)
		done <- taskResult{records: records, err: err}
	}()

	var res taskResult
	select {
	case res = <-done:
	case <-taskCtx.Done():
	}
	if err := o.taskError(ctx, taskCtx, def.Name, res.err); err != nil {
		res = taskResult{err: err}
	}

	outcome := jobs.SourceResult{Source: def.Name, Elapsed: o.clock.Now().Sub(start)}
	if res.err != nil {
		outcome.Err = res.err
		outcome.Error = res.err.Error()
		o.emit(progress.Event{
			RunID: runID, Stage: progress.StageSourceError, Source: def.Name,
			Dur: outcome.Elapsed, Note: outcome.Error,
		})
		logger.Warn("source failed",
			zap.String("source", def.Name),
			zap.Duration("elapsed", outcome.Elapsed),
			zap.Error(res.err),
		)
		return outcome
	}

	outcome.Records = res.records
	outcome.Count = len(res.records)
	metrics.ObserveSourceRecords(def.Name, outcome.Count)
	o.emit(progress.Event{
		RunID: runID, Stage: progress.StageSourceDone, Source: def.Name,
		Records: outcome.Count, Dur: outcome.Elapsed,
	})
	logger.Info("source finished",
		zap.String("source", def.Name),
		zap.Int("records", outcome.Count),
		zap.Duration("elapsed", outcome.Elapsed),
	)
	return outcome
}

// taskError normalises how a task ended. Hitting the task deadline is
// ErrTaskTimeout whatever the task itself returned; parent cancellation is
// reported as such.
func (o *Orchestrator) taskError(parent, taskCtx context.Context, name string, err error) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("source %s: %w", name, parent.Err())
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("source %s: %w after %s", name, jobs.ErrTaskTimeout, o.cfg.TaskTimeout)
	default:
		return err
	}
}

func (o *Orchestrator) emit(evt progress.Event) {
	evt.TS = o.clock.Now()
	o.events.Emit(evt)
}

type randomIDs struct{}

func (randomIDs) NewRunID() (uuid.UUID, error) {
	return uuid.NewV7()
}
