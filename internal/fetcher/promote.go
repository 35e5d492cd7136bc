package fetcher

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultPromotionThreshold is the visible-text size below which a page that
// looks like a client-rendered app is promoted.
const DefaultPromotionThreshold = 2048

const spaRoots = "#__next, #root, #app, [data-reactroot], [ng-app], [data-server-rendered]"

// Heuristic promotes responses that look like an empty JavaScript shell.
type Heuristic struct {
	TextThreshold int
}

// NewHeuristic creates a promoter; threshold <= 0 uses the default.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = DefaultPromotionThreshold
	}
	return &Heuristic{TextThreshold: threshold}
}

// ShouldPromote reports whether resp needs a rendering transport. When
// expectSelector is set, a page where it matches nothing is always promoted.
func (h *Heuristic) ShouldPromote(resp Response, expectSelector string) bool {
	if !isSuccess(resp.StatusCode) {
		return false
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return true
	}
	if expectSelector != "" && doc.Find(expectSelector).Length() == 0 {
		return true
	}

	scriptBytes := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scriptBytes += len(s.Text())
	})
	hasRoot := doc.Find(spaRoots).Length() > 0
	doc.Find("script, style, noscript, template").Remove()
	visible := len(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
	if visible >= h.TextThreshold {
		return false
	}
	return hasRoot || scriptBytes*100/len(resp.Body) >= 25
}
