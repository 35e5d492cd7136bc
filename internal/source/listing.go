package source

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobsift/internal/extract"
	"github.com/JakeFAU/jobsift/internal/urlnorm"
)

const (
	minHintRunes = 5
	maxHintRunes = 150
)

// candidate is a posting found on a listing page. Cards pre-fill the
// optional fields; link listings only carry an anchor-text title hint.
type candidate struct {
	URL      string
	Title    string
	Company  string
	Location string
}

// parseListing applies def's listing strategy to body.
func parseListing(def Definition, pageURL string, body []byte) ([]candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	c := newCollector(pageURL, def.MaxLinks)
	switch def.Listing {
	case ListingCards:
		doc.Find(def.Card.Item).EachWithBreak(func(_ int, item *goquery.Selection) bool {
			link := item.Find(def.Card.Link).First()
			href, _ := link.Attr("href")
			return c.add(href, candidate{
				Title:    selectText(item, def.Card.Title),
				Company:  selectText(item, def.Card.Company),
				Location: selectText(item, def.Card.Location),
			})
		})
	default:
		doc.Find(def.LinkSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			hint := extract.Clean(a.Text())
			if n := utf8.RuneCountInString(hint); n < minHintRunes || n > maxHintRunes {
				hint = ""
			}
			return c.add(href, candidate{Title: hint})
		})
	}
	return c.out, nil
}

func selectText(root *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return extract.Clean(root.Find(selector).First().Text())
}

// collector resolves, filters and de-duplicates hrefs up to a cap.
type collector struct {
	base  string
	self  string
	limit int
	seen  map[string]struct{}
	out   []candidate
}

func newCollector(base string, limit int) *collector {
	if limit <= 0 {
		limit = DefaultMaxLinks
	}
	return &collector{
		base:  base,
		self:  urlnorm.Normalize(base),
		limit: limit,
		seen:  make(map[string]struct{}),
	}
}

// add reports whether collection should continue.
func (c *collector) add(href string, cand candidate) bool {
	abs, ok := urlnorm.Resolve(c.base, href)
	if !ok || !urlnorm.IsProbableJobURL(abs) {
		return true
	}
	key := urlnorm.Normalize(abs)
	if key == c.self {
		return true
	}
	if _, dup := c.seen[key]; dup {
		return true
	}
	c.seen[key] = struct{}{}
	cand.URL = abs
	c.out = append(c.out, cand)
	return len(c.out) < c.limit
}
