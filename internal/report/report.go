// Package report renders the outcome of a run and stores it through a
// BlobStore.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/jobsift/internal/jobs"
)

// DefaultPriorityBonus is the skill score at which a record is promoted to
// the priority section.
const DefaultPriorityBonus = 2

// Report is everything known about a finished run.
type Report struct {
	RunID       uuid.UUID
	GeneratedAt time.Time
	Records     []jobs.Record
	Outcomes    []jobs.SourceResult
}

// Sink persists a report and returns where it went.
type Sink interface {
	Write(ctx context.Context, r Report) (uri string, err error)
}

// BlobStore is the destination for rendered reports. storage/local,
// storage/memory and storage/gcs implement it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Format selects a renderer.
type Format string

// Supported formats.
const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts the names above plus the md and yml aliases. Empty
// means markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Extension is the file extension used for stored reports.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "md"
	}
}

// ContentType is the MIME type used for stored reports.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Total is the number of records in the report.
func (r Report) Total() int {
	return len(r.Records)
}

// ObjectName is the storage path of a report: a date directory and a file
// named after the run.
func ObjectName(r Report, f Format) string {
	return fmt.Sprintf("%s/jobsift-%s.%s",
		r.GeneratedAt.UTC().Format("2006-01-02"), r.RunID, f.Extension())
}
