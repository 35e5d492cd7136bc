package jobs

import (
	"errors"
	"time"
)

// Sentinel errors recorded on SourceResult.Err.
var (
	ErrListingUnavailable = errors.New("listing page unavailable")
	ErrTaskTimeout        = errors.New("source task timed out")
	ErrTaskPanic          = errors.New("source task panicked")
)

// Record is a single discovered posting. Records are immutable once built;
// dedup replaces whole values instead of editing them.
type Record struct {
	Title         string    `json:"title" yaml:"title"`
	URL           string    `json:"url" yaml:"url"`
	NormalizedURL string    `json:"normalized_url" yaml:"normalized_url"`
	Source        string    `json:"source" yaml:"source"`
	Company       string    `json:"company,omitempty" yaml:"company,omitempty"`
	Location      string    `json:"location,omitempty" yaml:"location,omitempty"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	Salary        string    `json:"salary,omitempty" yaml:"salary,omitempty"`
	Urgent        bool      `json:"urgent" yaml:"urgent"`
	SkillScore    int       `json:"skill_score" yaml:"skill_score"`
	FoundAt       time.Time `json:"found_at" yaml:"found_at"`
}

// Fields is what a page extractor pulls out of a detail page. Any field may be
// empty.
type Fields struct {
	Title       string
	Description string
	Location    string
	Company     string
	Salary      string
}

// SourceResult is produced once per source task.
type SourceResult struct {
	Source  string        `json:"source" yaml:"source"`
	Records []Record      `json:"-" yaml:"-"`
	Count   int           `json:"count" yaml:"count"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Err     error         `json:"-" yaml:"-"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the task contributed nothing because of an error.
func (r SourceResult) Failed() bool {
	return r.Err != nil
}
