package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/JakeFAU/jobsift/internal/metrics"
	"github.com/JakeFAU/jobsift/internal/textnorm"
)

// Reason names the check that rejected a candidate.
type Reason string

// Rejection reasons, in evaluation order.
const (
	ReasonSpam           Reason = "spam"
	ReasonArea           Reason = "area"
	ReasonGeography      Reason = "geography"
	ReasonSeniority      Reason = "seniority"
	ReasonExperience     Reason = "experience"
	ReasonCertifications Reason = "certifications"
)

// Candidate is the text a Filter judges.
type Candidate struct {
	Title       string
	Description string
	Location    string
	Company     string
}

// Verdict is the outcome of Evaluate. Bonus and Urgent are only set on
// accepted candidates.
type Verdict struct {
	Accepted bool
	Reason   Reason
	Detail   string
	Bonus    int
	Urgent   bool
}

func reject(reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,3})\s*\+\s*(?:years?|yrs?|anos?)`),
	regexp.MustCompile(`(\d{1,3})\s*[-–]\s*(\d{1,3})\s*(?:years?|yrs?|anos?)`),
	regexp.MustCompile(`minimum\s+(?:of\s+)?(\d{1,3})\s*(?:years?|yrs?)`),
	regexp.MustCompile(`at least\s+(\d{1,3})\s*(?:years?|yrs?)`),
	regexp.MustCompile(`(\d{1,3})\s*(?:years?|yrs?)\s*(?:of\s+)?(?:experience|exp)`),
}

// RequiredYears returns the largest year count any experience pattern
// captures in folded text, or -1 when none match.
func RequiredYears(text string) int {
	best := -1
	for _, pattern := range experiencePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			for _, group := range match[1:] {
				if group == "" {
					continue
				}
				if n, err := strconv.Atoi(group); err == nil && n > best {
					best = n
				}
			}
		}
	}
	return best
}

// Filter applies Rules to candidates. It is stateless and safe for
// concurrent use.
type Filter struct {
	rules Rules
}

// New returns a Filter over rules.
func New(rules Rules) *Filter {
	return &Filter{rules: rules}
}

// Evaluate runs the checks in order; the first failure wins.
func (f *Filter) Evaluate(c Candidate) Verdict {
	v := f.evaluate(c)
	metrics.ObserveVerdict(string(v.Reason))
	return v
}

func (f *Filter) evaluate(c Candidate) Verdict {
	r := f.rules
	title := textnorm.Fold(c.Title)
	description := textnorm.Fold(c.Description)
	combined := pad(textnorm.Join(title, description))
	titleText := pad(title)
	descText := pad(description)

	if n := utf8.RuneCountInString(title); n < MinTitleRunes || n > MaxTitleRunes {
		return reject(ReasonSpam, fmt.Sprintf("title length %d", n))
	}
	if r.Spam.Match(combined) {
		return reject(ReasonSpam, firstMatch(r.Spam, combined))
	}

	if !r.Area.Match(combined) {
		return reject(ReasonArea, "no role keyword")
	}

	geoText := pad(textnorm.Join(title, description, c.Location))
	if !r.GeoAllow.Match(geoText) && r.GeoBlock.Match(geoText) {
		return reject(ReasonGeography, firstMatch(r.GeoBlock, geoText))
	}

	if v, rejected := f.seniority(titleText, descText); rejected {
		return v
	}

	if years := RequiredYears(description); years > r.MaxExperienceYears {
		return reject(ReasonExperience, fmt.Sprintf("%d years required", years))
	}

	if r.MaxCertifications > 0 {
		company := pad(textnorm.Fold(c.Company))
		if n := r.Certifications.Count(combined); n > r.MaxCertifications && !r.CertAllowlist.Match(company) {
			return reject(ReasonCertifications, fmt.Sprintf("%d certifications", n))
		}
	}

	return Verdict{
		Accepted: true,
		Bonus:    r.Skills.Count(combined),
		Urgent:   r.Urgency.Match(combined),
	}
}

// seniority gives the description priority over the title.
func (f *Filter) seniority(title, description string) (Verdict, bool) {
	r := f.rules
	switch {
	case r.Senior.Match(description):
		return reject(ReasonSeniority, "senior in description: "+firstMatch(r.Senior, description)), true
	case r.Junior.Match(description):
		return Verdict{}, false
	case r.Senior.Match(title):
		return reject(ReasonSeniority, "senior in title: "+firstMatch(r.Senior, title)), true
	case r.Junior.Match(title):
		return Verdict{}, false
	case r.RejectUnspecified:
		return reject(ReasonSeniority, "no level mentioned"), true
	default:
		return Verdict{}, false
	}
}

func pad(s string) string {
	return " " + s + " "
}
