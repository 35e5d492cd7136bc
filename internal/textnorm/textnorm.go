// Package textnorm folds free text into a canonical lowercase form so phrase
// matching and title similarity are insensitive to case, accents, width
// variants and irregular whitespace.
//
// Pipeline order:
//  1. drop invalid UTF-8
//  2. NFD and strip combining marks (sênior -> senior)
//  3. NFKC (ligatures, compatibility forms)
//  4. Unicode case folding
//  5. strip format characters (zero-width joiners, BOM)
//  6. fold fullwidth forms to ASCII
//  7. collapse whitespace runs to one space and trim
package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

// Fold returns the canonical form of s. It is safe for concurrent use.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	folded, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		folded = strings.ToLower(s)
	}
	return collapseSpaces(folded)
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}

// Join folds and space-joins the non-empty parts.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := Fold(p); f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
