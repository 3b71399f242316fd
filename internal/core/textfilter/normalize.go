// Package textfilter provides cheap lexical spam checks over message text
// Pipeline order for Normalize
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFD decomposition
// 3 Case folding
// 4 Remove combining marks and modifier letters
// 5 Replace symbols and punctuation with spaces
// 6 Collapse whitespace to single spaces and trim
package textfilter

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFD,
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Lm)), // strip modifier letters
		)
	},
}

// Normalize returns the normalized form of s following the pipeline above
// lookalike detection depends on this exact ordering
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// 1 repair UTF-8 drop invalid bytes
	s = strings.ToValidUTF8(s, "")

	// 2-4 transform via pooled chain then reset and return it
	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	// 5 symbols and punctuation become spaces so words stay separated
	ns = stripSymbols(ns)

	// 6 collapse whitespace and trim
	return collapseSpaces(ns)
}

// stripSymbols replaces emoji, symbols and punctuation with a single space
func stripSymbols(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteRune(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
