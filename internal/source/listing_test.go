package source

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseListingLinks(t *testing.T) {
	t.Parallel()

	body := `<html><body><ul>
<li><a class="job" href="/job/1">Junior Help Desk Technician</a></li>
<li><a class="job" href="/job/1/?utm_source=feed">Junior Help Desk Technician</a></li>
<li><a class="job" href="https://other.example/job/2">Go</a></li>
<li><a class="job" href="mailto:jobs@board.example">Email us</a></li>
<li><a class="job" href="/files/brochure.pdf">Brochure</a></li>
<li><a class="job" href="#top">Top</a></li>
<li><a class="job" href="/jobs">All jobs</a></li>
<li><a class="nav" href="/about">About</a></li>
</ul></body></html>`

	def := Definition{LinkSelector: "a.job"}.WithDefaults()
	got, err := parseListing(def, "https://board.example/jobs", []byte(body))
	require.NoError(t, err)
	require.Equal(t, []candidate{
		{URL: "https://board.example/job/1", Title: "Junior Help Desk Technician"},
		{URL: "https://other.example/job/2"},
	}, got)
}

func TestParseListingCapsLinks(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := range 40 {
		fmt.Fprintf(&b, `<a class="job" href="/job/%d">Posting %d</a>`, i, i)
	}
	def := Definition{LinkSelector: "a.job", MaxLinks: 5}.WithDefaults()
	got, err := parseListing(def, "https://board.example/jobs", []byte(b.String()))
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, "https://board.example/job/4", got[4].URL)

	def.MaxLinks = 0
	def = def.WithDefaults()
	got, err = parseListing(def, "https://board.example/jobs", []byte(b.String()))
	require.NoError(t, err)
	require.Len(t, got, DefaultMaxLinks)
}

func TestParseListingCards(t *testing.T) {
	t.Parallel()

	body := `<table>
<tr class="job"><td><h2>Junior NOC Analyst</h2><h3>Acme</h3><div class="location">Worldwide</div><a class="apply" href="/remote-jobs/1">Apply</a></td></tr>
<tr class="job"><td><h2>No link here</h2></td></tr>
<tr class="job"><td><h2>Service Desk Agent</h2><a class="apply" href="/remote-jobs/2">Apply</a></td></tr>
</table>`
	def := Definition{
		Listing: ListingCards,
		Card:    CardSelectors{Item: "tr.job", Title: "h2", Link: "a.apply", Company: "h3", Location: "div.location"},
	}.WithDefaults()

	got, err := parseListing(def, "https://cards.example/list", []byte(body))
	require.NoError(t, err)
	require.Equal(t, []candidate{
		{URL: "https://cards.example/remote-jobs/1", Title: "Junior NOC Analyst", Company: "Acme", Location: "Worldwide"},
		{URL: "https://cards.example/remote-jobs/2", Title: "Service Desk Agent"},
	}, got)
}
