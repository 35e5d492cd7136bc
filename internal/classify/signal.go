package classify

import (
	"strings"

	"github.com/JakeFAU/jobsift/internal/textnorm"
)

// Signal reports whether folded text carries a phrase and how often.
type Signal interface {
	Match(text string) bool
	Count(text string) int
}

// PhraseSet is a substring Signal over folded phrases. Matching is plain
// substring search: no stemming, no word boundaries.
type PhraseSet struct {
	phrases []string
}

// NewPhraseSet folds and de-duplicates phrases. A leading or trailing space
// in the raw phrase is kept so "sr " does not match "srv"; callers pad the
// text they match against with spaces.
func NewPhraseSet(phrases ...string) PhraseSet {
	seen := make(map[string]struct{}, len(phrases))
	kept := make([]string, 0, len(phrases))
	for _, raw := range phrases {
		folded := textnorm.Fold(raw)
		if folded == "" {
			continue
		}
		if strings.HasPrefix(raw, " ") {
			folded = " " + folded
		}
		if strings.HasSuffix(raw, " ") {
			folded += " "
		}
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		kept = append(kept, folded)
	}
	return PhraseSet{phrases: kept}
}

// Match reports whether any phrase occurs in text.
func (p PhraseSet) Match(text string) bool {
	_, ok := p.First(text)
	return ok
}

// First returns the first phrase, in list order, that occurs in text.
func (p PhraseSet) First(text string) (string, bool) {
	for _, phrase := range p.phrases {
		if strings.Contains(text, phrase) {
			return strings.TrimSpace(phrase), true
		}
	}
	return "", false
}

// Count sums non-overlapping occurrences of every phrase.
func (p PhraseSet) Count(text string) int {
	total := 0
	for _, phrase := range p.phrases {
		total += strings.Count(text, phrase)
	}
	return total
}

// Len is the number of distinct phrases.
func (p PhraseSet) Len() int {
	return len(p.phrases)
}

// firstMatch names the matched phrase when the signal can say which one.
func firstMatch(s Signal, text string) string {
	if named, ok := s.(interface{ First(string) (string, bool) }); ok {
		if phrase, found := named.First(text); found {
			return phrase
		}
	}
	return ""
}
