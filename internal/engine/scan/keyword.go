package scan

import "unicode"

// IsSpace reports whether r separates words.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r)
}

// IsWordBoundary reports whether position i is end of input or whitespace.
func IsWordBoundary(src []rune, i int) bool {
	return i >= len(src) || IsSpace(src[i])
}

// SkipSpace returns the first index at or after i that is not whitespace.
func SkipSpace(src []rune, i int) int {
	for i < len(src) && IsSpace(src[i]) {
		i++
	}
	return i
}

// MatchKeyword reports whether kw occurs at i and is followed by a word
// boundary.
func MatchKeyword(src []rune, i int, kw string) bool {
	n := 0
	for _, r := range kw {
		if i+n >= len(src) || src[i+n] != r {
			return false
		}
		n++
	}
	return IsWordBoundary(src, i+n)
}

// Disambiguator decides when contextual keyword text is a keyword and when it
// is ordinary identifier text. A keyword only counts in the parser states
// registered for it.
type Disambiguator[S comparable] struct {
	order []string
	legal map[string]map[S]bool
}

func NewDisambiguator[S comparable]() *Disambiguator[S] {
	return &Disambiguator[S]{legal: make(map[string]map[S]bool)}
}

// Allow registers kw as legal in states.
func (d *Disambiguator[S]) Allow(kw string, states ...S) *Disambiguator[S] {
	set, ok := d.legal[kw]
	if !ok {
		set = make(map[S]bool, len(states))
		d.legal[kw] = set
		d.order = append(d.order, kw)
	}
	for _, s := range states {
		set[s] = true
	}
	return d
}

// Match returns the keyword found at i, if any keyword legal in state starts
// there and ends on a word boundary.
func (d *Disambiguator[S]) Match(src []rune, i int, state S) (string, bool) {
	if i > 0 && IsIdentPart(src[i-1]) {
		return "", false
	}
	for _, kw := range d.order {
		if !d.legal[kw][state] {
			continue
		}
		if MatchKeyword(src, i, kw) {
			return kw, true
		}
	}
	return "", false
}

// IsIdentStart reports whether r may begin an identifier. The verbatim
// prefix '@' is accepted here and checked by the identifier validator.
func IsIdentStart(r rune) bool {
	return r == '_' || r == '@' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

// IsIdentPart reports whether r may continue an identifier.
func IsIdentPart(r rune) bool {
	if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return unicode.In(r, unicode.Nl, unicode.Mn, unicode.Mc, unicode.Pc, unicode.Cf)
}

// ScanIdentifier returns the index just past the identifier starting at i, or
// i when none starts there.
func ScanIdentifier(src []rune, i int) int {
	if i >= len(src) || !IsIdentStart(src[i]) {
		return i
	}
	j := i + 1
	if src[i] == '@' {
		if j >= len(src) || !(src[j] == '_' || unicode.IsLetter(src[j])) {
			return i
		}
		j++
	}
	for j < len(src) && IsIdentPart(src[j]) {
		j++
	}
	return j
}
