// Package dedup collapses duplicate and near-duplicate job records.
package dedup

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/jobs"
	"github.com/JakeFAU/jobsift/internal/metrics"
	"github.com/JakeFAU/jobsift/internal/textnorm"
)

// Defaults.
const (
	DefaultThreshold = 0.85
	DefaultWarnAbove = 1000
)

// Deduplicator removes exact URL duplicates, then titles whose similarity
// reaches the threshold. The title pass is quadratic in the number of
// survivors.
type Deduplicator struct {
	threshold float64
	warnAbove int
	logger    *zap.Logger
}

// New returns a Deduplicator. Non-positive arguments select the defaults.
func New(threshold float64, warnAbove int, logger *zap.Logger) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if warnAbove <= 0 {
		warnAbove = DefaultWarnAbove
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{threshold: threshold, warnAbove: warnAbove, logger: logger}
}

// Dedupe returns a new slice; records are never modified. The result is
// order-sensitive and applying Dedupe to its own output is a no-op.
func (d *Deduplicator) Dedupe(records []jobs.Record) []jobs.Record {
	byURL := d.collapseURLs(records)
	out := d.collapseTitles(byURL)
	metrics.ObserveDedupDropped("url", len(records)-len(byURL))
	metrics.ObserveDedupDropped("title", len(byURL)-len(out))
	return out
}

func (d *Deduplicator) collapseURLs(records []jobs.Record) []jobs.Record {
	out := make([]jobs.Record, 0, len(records))
	position := make(map[string]int, len(records))
	for _, rec := range records {
		idx, seen := position[rec.NormalizedURL]
		if !seen {
			position[rec.NormalizedURL] = len(out)
			out = append(out, rec)
			continue
		}
		if rec.SkillScore > out[idx].SkillScore {
			out[idx] = rec
		}
	}
	return out
}

type keptTitle struct {
	record jobs.Record
	folded string
	order  int
}

func (d *Deduplicator) collapseTitles(records []jobs.Record) []jobs.Record {
	kept := make([]keptTitle, 0, len(records))
	warned := false
	for n, rec := range records {
		folded := textnorm.Fold(rec.Title)
		match := -1
		for i := range kept {
			if ratio(kept[i].folded, folded) >= d.threshold {
				match = i
				break
			}
		}
		switch {
		case match < 0:
			kept = append(kept, keptTitle{record: rec, folded: folded, order: n})
			if !warned && len(kept) > d.warnAbove {
				warned = true
				d.logger.Warn("title dedup is quadratic; kept set past warning size",
					zap.Int("kept", len(kept)),
					zap.Int("warn_above", d.warnAbove),
				)
			}
		case rec.SkillScore > kept[match].record.SkillScore:
			kept[match] = keptTitle{record: rec, folded: folded, order: n}
			kept = d.settle(kept, match)
		}
	}

	out := make([]jobs.Record, len(kept))
	for i, k := range kept {
		out[i] = k.record
	}
	return out
}

// settle merges the entry at idx with any other kept entry it now matches.
// The higher score survives in the earlier slot; ties keep the record that
// came first in the input. Only the replaced entry can introduce a new
// matching pair.
func (d *Deduplicator) settle(kept []keptTitle, idx int) []keptTitle {
	for {
		other := -1
		for j := range kept {
			if j != idx && ratio(kept[idx].folded, kept[j].folded) >= d.threshold {
				other = j
				break
			}
		}
		if other < 0 {
			return kept
		}
		first, second := min(idx, other), max(idx, other)
		if beats(kept[second], kept[first]) {
			kept[first] = kept[second]
		}
		kept = append(kept[:second], kept[second+1:]...)
		idx = first
	}
}

func beats(a, b keptTitle) bool {
	if a.record.SkillScore != b.record.SkillScore {
		return a.record.SkillScore > b.record.SkillScore
	}
	return a.order < b.order
}

// Similarity is 1 - editDistance/maxRuneLength over folded titles. Two empty
// titles are identical.
func Similarity(a, b string) float64 {
	return ratio(textnorm.Fold(a), textnorm.Fold(b))
}

func ratio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
