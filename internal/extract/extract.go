// Package extract pulls best-effort posting fields out of detail-page HTML
// with goquery. Every field is optional; an empty Fields value is valid.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobsift/internal/jobs"
)

// DefaultMaxDescription caps descriptions in runes.
const DefaultMaxDescription = 3000

const (
	minTitleRunes       = 5
	maxTitleRunes       = 150
	minDescriptionRunes = 100
	maxCompanyRunes     = 100
	maxLocationRunes    = 80
)

var (
	titleClass       = regexp.MustCompile(`(?i)(job|title|position)`)
	descriptionClass = regexp.MustCompile(`(?i)description`)
	companyClass     = regexp.MustCompile(`(?i)company`)
	locationClass    = regexp.MustCompile(`(?i)location`)
	locationLine     = regexp.MustCompile(`(?i)location\s*:\s*([^\n\r|•]{2,80})`)

	salaryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:R\$|[$€£])\s?\d[\d,.]*\s?k?(?:\s*(?:-|–|to)\s*(?:R\$|[$€£])?\s?\d[\d,.]*\s?k?)?(?:\s*(?:/|per)\s*(?:year|yr|annum|month|mo|hour|hr))?`),
		regexp.MustCompile(`(?i)\d[\d,.]*\s?k?(?:\s*(?:-|–|to)\s*\d[\d,.]*\s?k?)?\s?(?:USD|EUR|GBP|BRL)\b`),
	}
)

// Extractor implements jobs.Extractor.
type Extractor struct {
	maxDescription int
}

// New returns an Extractor; maxDescription <= 0 selects the default.
func New(maxDescription int) *Extractor {
	if maxDescription <= 0 {
		maxDescription = DefaultMaxDescription
	}
	return &Extractor{maxDescription: maxDescription}
}

var _ jobs.Extractor = (*Extractor)(nil)

// Extract parses page and applies the per-field fallbacks.
func (e *Extractor) Extract(ctx context.Context, page []byte, _ string) (jobs.Fields, error) {
	if err := ctx.Err(); err != nil {
		return jobs.Fields{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return jobs.Fields{}, fmt.Errorf("parse html: %w", err)
	}

	description := e.description(doc)
	return jobs.Fields{
		Title:       title(doc),
		Description: description,
		Company:     company(doc),
		Location:    location(doc),
		Salary:      Salary(description),
	}, nil
}

func title(doc *goquery.Document) string {
	candidates := []*goquery.Selection{
		withClass(doc.Selection, "h1", titleClass),
		doc.Find("h1").First(),
		doc.Find("title").First(),
	}
	for _, sel := range candidates {
		if sel == nil || sel.Length() == 0 {
			continue
		}
		text := Clean(sel.Text())
		if n := len([]rune(text)); n >= minTitleRunes && n <= maxTitleRunes {
			return text
		}
	}
	return ""
}

func (e *Extractor) description(doc *goquery.Document) string {
	if meta, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if text := Clean(meta); len([]rune(text)) > minDescriptionRunes {
			return truncate(text, e.maxDescription)
		}
	}
	candidates := []*goquery.Selection{
		withClass(doc.Selection, "div", descriptionClass),
		withClass(doc.Selection, "section", descriptionClass),
		doc.Find("article").First(),
	}
	for _, sel := range candidates {
		if sel == nil || sel.Length() == 0 {
			continue
		}
		if text := Clean(spacedText(sel)); len([]rune(text)) > minDescriptionRunes {
			return truncate(text, e.maxDescription)
		}
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	return truncate(Clean(spacedText(body)), e.maxDescription)
}

func company(doc *goquery.Document) string {
	for _, tag := range []string{"span", "div", "a"} {
		sel := withClass(doc.Selection, tag, companyClass)
		if sel == nil {
			continue
		}
		if text := Clean(sel.Text()); text != "" && len([]rune(text)) < maxCompanyRunes {
			return text
		}
	}
	return ""
}

func location(doc *goquery.Document) string {
	for _, tag := range []string{"span", "div", "li", "p"} {
		sel := withClass(doc.Selection, tag, locationClass)
		if sel == nil {
			continue
		}
		if text := Clean(sel.Text()); text != "" && len([]rune(text)) <= maxLocationRunes {
			return text
		}
	}
	if m := locationLine.FindStringSubmatch(spacedText(doc.Find("body"))); m != nil {
		return Clean(m[1])
	}
	return ""
}

// Salary returns the first currency amount or range found in text.
func Salary(text string) string {
	for _, pattern := range salaryPatterns {
		if m := pattern.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// withClass returns the first tag element whose class attribute matches re.
func withClass(root *goquery.Selection, tag string, re *regexp.Regexp) *goquery.Selection {
	sel := root.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		return ok && re.MatchString(class)
	}).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

// spacedText joins text nodes with newlines so adjacent block elements do
// not run together. Script and style bodies are skipped.
func spacedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			switch goquery.NodeName(child) {
			case "#text":
				b.WriteString(child.Text())
				b.WriteByte('\n')
			case "script", "style", "noscript", "#comment":
			default:
				walk(child)
			}
		})
	}
	walk(sel)
	return b.String()
}

// Clean drops control characters and collapses whitespace.
func Clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
