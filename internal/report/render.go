package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/jobsift/internal/jobs"
)

// Render writes r to w in the given format. priorityBonus only affects
// markdown.
func Render(w io.Writer, r Report, f Format, priorityBonus int) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newDocument(r))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newDocument(r)); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown, "":
		_, err := io.WriteString(w, markdown(r, priorityBonus))
		return err
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// document is the serialised shape shared by the json and yaml renderers.
type document struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
	Total       int           `json:"total" yaml:"total"`
	Records     []jobs.Record `json:"records" yaml:"records"`
	Sources     []outcome     `json:"sources" yaml:"sources"`
}

type outcome struct {
	Source  string `json:"source" yaml:"source"`
	Count   int    `json:"count" yaml:"count"`
	Elapsed string `json:"elapsed" yaml:"elapsed"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newDocument(r Report) document {
	records := r.Records
	if records == nil {
		records = []jobs.Record{}
	}
	sources := make([]outcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		sources = append(sources, outcome{
			Source:  o.Source,
			Count:   o.Count,
			Elapsed: o.Elapsed.Round(time.Millisecond).String(),
			Error:   errorText(o),
		})
	}
	return document{
		RunID:       r.RunID.String(),
		GeneratedAt: r.GeneratedAt.UTC(),
		Total:       len(records),
		Records:     records,
		Sources:     sources,
	}
}

func errorText(o jobs.SourceResult) string {
	if o.Error != "" {
		return o.Error
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return ""
}

// IsPriority reports whether a record belongs in the priority section.
func IsPriority(rec jobs.Record, priorityBonus int) bool {
	return rec.Urgent || rec.SkillScore >= priorityBonus
}

func markdown(r Report, priorityBonus int) string {
	var b strings.Builder
	b.WriteString("# Job report\n\n")
	fmt.Fprintf(&b, "Run `%s` generated %s. %d postings from %d sources.\n",
		r.RunID, r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), len(r.Records), len(r.Outcomes))

	if len(r.Records) == 0 {
		b.WriteString("\nNo postings matched.\n")
	} else {
		var priority, rest []jobs.Record
		for _, rec := range r.Records {
			if IsPriority(rec, priorityBonus) {
				priority = append(priority, rec)
			} else {
				rest = append(rest, rec)
			}
		}
		if len(priority) > 0 {
			b.WriteString("\n## Priority\n\n")
			for _, rec := range priority {
				writeEntry(&b, rec, true)
			}
		}
		order, groups := groupBySource(rest)
		for _, name := range order {
			fmt.Fprintf(&b, "\n## %s\n\n", escapeMarkdown(name))
			for _, rec := range groups[name] {
				writeEntry(&b, rec, false)
			}
		}
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Source | Records | Elapsed | Error |\n")
	b.WriteString("|---|---:|---:|---|\n")
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n",
			escapeCell(o.Source), o.Count, o.Elapsed.Round(time.Millisecond), escapeCell(errorText(o)))
	}
	fmt.Fprintf(&b, "| **Total** | %d | | |\n", len(r.Records))
	return b.String()
}

func groupBySource(records []jobs.Record) ([]string, map[string][]jobs.Record) {
	var order []string
	groups := make(map[string][]jobs.Record)
	for _, rec := range records {
		if _, ok := groups[rec.Source]; !ok {
			order = append(order, rec.Source)
		}
		groups[rec.Source] = append(groups[rec.Source], rec)
	}
	return order, groups
}

func writeEntry(b *strings.Builder, rec jobs.Record, withSource bool) {
	fmt.Fprintf(b, "- [%s](%s)", escapeMarkdown(rec.Title), rec.URL)
	var details []string
	if rec.Urgent {
		details = append(details, "**urgent**")
	}
	if withSource {
		details = append(details, rec.Source)
	}
	for _, v := range []string{rec.Company, rec.Location, rec.Salary} {
		if v != "" {
			details = append(details, escapeMarkdown(v))
		}
	}
	if rec.SkillScore > 0 {
		details = append(details, fmt.Sprintf("skills +%d", rec.SkillScore))
	}
	if len(details) > 0 {
		b.WriteString(" · ")
		b.WriteString(strings.Join(details, " · "))
	}
	b.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"[", `\[`,
	"]", `\]`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeMarkdown(s), "|", `\|`)
}
