package orchestrator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/JakeFAU/jobsift/internal/jobs"
)

// SortKey names a final record ordering.
type SortKey string

// Sort keys.
const (
	// SortPriority: urgent first, then skill score descending, then source
	// and title.
	SortPriority SortKey = "priority"
	// SortSource groups by source, then title.
	SortSource SortKey = "source"
	// SortNewest orders by discovery time, newest first.
	SortNewest SortKey = "newest"
)

// ParseSortKey validates a configured key; empty means priority.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(s)) {
	case "", SortPriority:
		return SortPriority, nil
	case SortSource:
		return SortSource, nil
	case SortNewest:
		return SortNewest, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// Sort orders records in place. The sort is stable.
func Sort(records []jobs.Record, key SortKey) {
	slices.SortStableFunc(records, compareFor(key))
}

func compareFor(key SortKey) func(a, b jobs.Record) int {
	bySourceTitle := func(a, b jobs.Record) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Title, b.Title))
	}
	switch key {
	case SortSource:
		return bySourceTitle
	case SortNewest:
		return func(a, b jobs.Record) int {
			return cmp.Or(b.FoundAt.Compare(a.FoundAt), bySourceTitle(a, b))
		}
	default:
		return func(a, b jobs.Record) int {
			return cmp.Or(
				boolFirst(a.Urgent, b.Urgent),
				cmp.Compare(b.SkillScore, a.SkillScore),
				bySourceTitle(a, b),
			)
		}
	}
}

func boolFirst(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}
