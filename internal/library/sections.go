package library

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Section bucket keys, in display order.
const (
	SectionSymbol = "&"
	SectionDigit  = "#"
	SectionOther  = "…"
)

// Sections lists every bucket key in order: &, #, A-Z, ….
var Sections = func() []string {
	s := []string{SectionSymbol, SectionDigit}
	for c := 'A'; c <= 'Z'; c++ {
		s = append(s, string(c))
	}
	return append(s, SectionOther)
}()

// SectionOf returns the bucket for a display name: the upper-cased first
// letter with diacritics removed, # for digits, & for punctuation and
// symbols, … for anything else or an empty name.
func SectionOf(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return SectionOther
	}
	folded, _, err := transform.String(foldChain(), name)
	if err != nil || folded == "" {
		folded = name
	}

	r := []rune(folded)[0]
	switch {
	case r >= '0' && r <= '9':
		return SectionDigit
	case unicode.IsPunct(r) || unicode.IsSymbol(r):
		return SectionSymbol
	}
	r = unicode.ToUpper(r)
	if r >= 'A' && r <= 'Z' {
		return string(r)
	}
	return SectionOther
}

// foldChain strips combining marks so that É sorts under E.
// A transform.Transformer is stateful, so each call builds its own.
func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
