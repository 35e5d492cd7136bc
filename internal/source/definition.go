// Package source turns a declarative board definition into job records: it
// fetches the listing page, selects candidate postings, fetches and extracts
// their detail pages, and keeps what the classifier accepts.
package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JakeFAU/jobsift/internal/fetcher"
)

// ListingStrategy selects how candidates are read off a listing page.
type ListingStrategy string

// Listing strategies.
const (
	ListingLinks ListingStrategy = "links"
	ListingCards ListingStrategy = "cards"
)

// DetailStrategy selects whether candidates get a detail-page fetch.
type DetailStrategy string

// Detail strategies.
const (
	DetailFetch DetailStrategy = "fetch"
	DetailNone  DetailStrategy = "none"
)

// DefaultMaxLinks caps candidates per listing.
const DefaultMaxLinks = 15

// QueryPlaceholder in listing_url is replaced by the escaped query.
const QueryPlaceholder = "{query}"

// CardSelectors are evaluated relative to each Item match.
type CardSelectors struct {
	Item     string `mapstructure:"item" json:"item" yaml:"item"`
	Title    string `mapstructure:"title" json:"title" yaml:"title"`
	Link     string `mapstructure:"link" json:"link" yaml:"link"`
	Company  string `mapstructure:"company" json:"company,omitempty" yaml:"company,omitempty"`
	Location string `mapstructure:"location" json:"location,omitempty" yaml:"location,omitempty"`
}

// Definition describes one job board.
type Definition struct {
	Name         string          `mapstructure:"name" json:"name" yaml:"name" validate:"required"`
	ListingURL   string          `mapstructure:"listing_url" json:"listing_url" yaml:"listing_url" validate:"required,listing_url"`
	Query        string          `mapstructure:"query" json:"query,omitempty" yaml:"query,omitempty"`
	Listing      ListingStrategy `mapstructure:"listing" json:"listing" yaml:"listing" validate:"oneof=links cards"`
	LinkSelector string          `mapstructure:"link_selector" json:"link_selector,omitempty" yaml:"link_selector,omitempty" validate:"required_if=Listing links"`
	Card         CardSelectors   `mapstructure:"card" json:"card,omitempty" yaml:"card,omitempty"`
	MaxLinks     int             `mapstructure:"max_links" json:"max_links" yaml:"max_links" validate:"gte=0,lte=500"`
	Render       string          `mapstructure:"render" json:"render" yaml:"render" validate:"oneof=never auto always"`
	WaitSelector string          `mapstructure:"wait_selector" json:"wait_selector,omitempty" yaml:"wait_selector,omitempty"`
	Detail       DetailStrategy  `mapstructure:"detail" json:"detail" yaml:"detail" validate:"oneof=fetch none"`
	Enabled      *bool           `mapstructure:"enabled" json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// WithDefaults fills unset optional fields.
func (d Definition) WithDefaults() Definition {
	if d.Listing == "" {
		d.Listing = ListingLinks
	}
	if d.Detail == "" {
		d.Detail = DetailFetch
	}
	if d.Render == "" {
		d.Render = string(fetcher.RenderNever)
	}
	if d.MaxLinks == 0 {
		d.MaxLinks = DefaultMaxLinks
	}
	return d
}

// IsEnabled treats an unset flag as enabled.
func (d Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// URL returns the listing URL with the query placeholder filled in.
func (d Definition) URL() string {
	if !strings.Contains(d.ListingURL, QueryPlaceholder) {
		return d.ListingURL
	}
	return strings.ReplaceAll(d.ListingURL, QueryPlaceholder, url.QueryEscape(d.Query))
}

// RenderMode parses Render; Validate has already rejected bad values.
func (d Definition) RenderMode() fetcher.RenderMode {
	mode, err := fetcher.ParseRenderMode(d.Render)
	if err != nil {
		return fetcher.RenderNever
	}
	return mode
}

// expectSelector is what a useful listing page must contain.
func (d Definition) expectSelector() string {
	if d.WaitSelector != "" {
		return d.WaitSelector
	}
	if d.Listing == ListingCards {
		return d.Card.Item
	}
	return d.LinkSelector
}

type definitionSet struct {
	Sources []Definition `validate:"unique=Name,dive"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("listing_url", validListingURL)
	v.RegisterStructValidation(validateCards, Definition{})
	return v
}

func validListingURL(fl validator.FieldLevel) bool {
	raw := strings.ReplaceAll(fl.Field().String(), QueryPlaceholder, "q")
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validateCards(sl validator.StructLevel) {
	def, ok := sl.Current().Interface().(Definition)
	if !ok {
		return
	}
	if def.Listing == ListingCards {
		if def.Card.Item == "" {
			sl.ReportError(def.Card.Item, "Card.Item", "Item", "required_for_cards", "")
		}
		if def.Card.Link == "" {
			sl.ReportError(def.Card.Link, "Card.Link", "Link", "required_for_cards", "")
		}
	}
	if def.Detail == DetailNone && def.Listing != ListingCards {
		sl.ReportError(def.Detail, "Detail", "Detail", "none_requires_cards", "")
	}
}

// Validate applies defaults and checks every definition. Names must be
// unique across the list.
func Validate(defs []Definition) ([]Definition, error) {
	normalized := make([]Definition, len(defs))
	for i, d := range defs {
		normalized[i] = d.WithDefaults()
	}
	if err := newValidator().Struct(definitionSet{Sources: normalized}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid sources: %s", strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("invalid sources: %w", err)
	}
	return normalized, nil
}

// Enabled filters defs down to enabled definitions.
func Enabled(defs []Definition) []Definition {
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		if d.IsEnabled() {
			out = append(out, d)
		}
	}
	return out
}
