package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobsift/internal/classify"
	"github.com/JakeFAU/jobsift/internal/fetcher"
	"github.com/JakeFAU/jobsift/internal/jobs"
	"github.com/JakeFAU/jobsift/internal/urlnorm"
)

// PageGetter is the part of fetcher.Fetcher a task needs.
type PageGetter interface {
	Get(ctx context.Context, rawURL string, opts ...fetcher.Option) (fetcher.Page, bool)
}

// Classifier judges a candidate.
type Classifier interface {
	Evaluate(c classify.Candidate) classify.Verdict
}

// Task runs any Definition. One Task is shared by all sources in a run.
type Task struct {
	pages             PageGetter
	extractor         jobs.Extractor
	classifier        Classifier
	clock             jobs.Clock
	detailConcurrency int
	logger            *zap.Logger
}

// NewTask wires a Task. detailConcurrency below 1 means sequential.
func NewTask(
	pages PageGetter,
	extractor jobs.Extractor,
	classifier Classifier,
	clock jobs.Clock,
	detailConcurrency int,
	logger *zap.Logger,
) *Task {
	if detailConcurrency < 1 {
		detailConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		pages:             pages,
		extractor:         extractor,
		classifier:        classifier,
		clock:             clock,
		detailConcurrency: detailConcurrency,
		logger:            logger,
	}
}

// Run fetches def's listing and returns the accepted records in listing
// order. A missing listing page fails the task; individual detail pages that
// cannot be fetched or parsed are skipped. Panics are returned as
// jobs.ErrTaskPanic.
func (t *Task) Run(ctx context.Context, def Definition) (records []jobs.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("source %s: %w: %v", def.Name, jobs.ErrTaskPanic, r)
		}
	}()

	def = def.WithDefaults()
	logger := t.logger.With(zap.String("source", def.Name))
	listingURL := def.URL()

	page, ok := t.pages.Get(ctx, listingURL,
		fetcher.WithRender(def.RenderMode()),
		fetcher.WithExpectSelector(def.expectSelector()),
	)
	if !ok {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("source %s: %w", def.Name, ctxErr)
		}
		return nil, fmt.Errorf("source %s: %s: %w", def.Name, listingURL, jobs.ErrListingUnavailable)
	}

	candidates, err := parseListing(def, listingURL, page.Body)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", def.Name, err)
	}
	logger.Debug("listing parsed", zap.Int("candidates", len(candidates)))

	accepted := make([]*jobs.Record, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.detailConcurrency)
	for i, cand := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", jobs.ErrTaskPanic, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			accepted[i] = t.process(gctx, def, cand, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("source %s: %w", def.Name, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("source %s: %w", def.Name, ctxErr)
	}

	for _, rec := range accepted {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	logger.Debug("source done",
		zap.Int("candidates", len(candidates)),
		zap.Int("accepted", len(records)),
	)
	return records, nil
}

// process returns nil when the candidate is skipped or rejected.
func (t *Task) process(ctx context.Context, def Definition, cand candidate, logger *zap.Logger) *jobs.Record {
	fields := jobs.Fields{
		Title:    cand.Title,
		Company:  cand.Company,
		Location: cand.Location,
	}

	if def.Detail == DetailFetch {
		page, ok := t.pages.Get(ctx, cand.URL, fetcher.WithRender(def.RenderMode()))
		if !ok {
			logger.Debug("detail page unavailable", zap.String("url", cand.URL))
			return nil
		}
		extracted, err := t.extractor.Extract(ctx, page.Body, cand.URL)
		if err != nil {
			logger.Debug("detail extraction failed", zap.String("url", cand.URL), zap.Error(err))
			return nil
		}
		fields = merge(fields, extracted)
	}

	verdict := t.classifier.Evaluate(classify.Candidate{
		Title:       fields.Title,
		Description: fields.Description,
		Location:    fields.Location,
		Company:     fields.Company,
	})
	if !verdict.Accepted {
		logger.Debug("candidate rejected",
			zap.String("url", cand.URL),
			zap.String("reason", string(verdict.Reason)),
			zap.String("detail", verdict.Detail),
		)
		return nil
	}

	logger.Info("candidate accepted", zap.String("title", fields.Title), zap.String("url", cand.URL))
	return &jobs.Record{
		Title:         strings.TrimSpace(fields.Title),
		URL:           cand.URL,
		NormalizedURL: urlnorm.Normalize(cand.URL),
		Source:        def.Name,
		Company:       fields.Company,
		Location:      fields.Location,
		Description:   fields.Description,
		Salary:        fields.Salary,
		Urgent:        verdict.Urgent,
		SkillScore:    verdict.Bonus,
		FoundAt:       t.clock.Now(),
	}
}

// merge prefers listing-supplied values and fills the gaps from the detail
// page.
func merge(listing, detail jobs.Fields) jobs.Fields {
	out := detail
	if listing.Title != "" {
		out.Title = listing.Title
	}
	if listing.Company != "" {
		out.Company = listing.Company
	}
	if listing.Location != "" {
		out.Location = listing.Location
	}
	return out
}
