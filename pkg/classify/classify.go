// Package classify provides the pluggable text classification strategies used
// by the memory engine: importance, insight categories, phase signals and
// memory intents.
//
// Every strategy satisfies [Classifier]. The keyword implementations in this
// package are driven by a [Lexicon] so word lists can be replaced without
// touching the engine; a different strategy (e.g. a model-backed one) only
// has to implement Classify.
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Classifier maps raw text onto a label of type T.
type Classifier[T any] interface {
	Classify(text string) T
}

// Func adapts a plain function into a Classifier.
type Func[T any] func(text string) T

// Classify calls f(text).
func (f Func[T]) Classify(text string) T {
	return f(text)
}

// normalize lowercases text and folds typographic apostrophes so lexicon
// terms like "don't" match.
func normalize(text string) string {
	text = strings.ToLower(text)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

// find returns the byte offset of the first boundary-respecting occurrence of
// term in lower, or -1. A term that starts (ends) with a letter or digit must
// not be preceded (followed) by one, so "never" does not match "whenever".
func find(lower, term string) int {
	if term == "" {
		return -1
	}

	offset := 0
	for {
		i := strings.Index(lower[offset:], term)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(term)

		if boundaryBefore(lower, start, term) && boundaryAfter(lower, end, term) {
			return start
		}
		offset = start + 1
		if offset >= len(lower) {
			return -1
		}
	}
}

func boundaryBefore(s string, start int, term string) bool {
	first, _ := utf8.DecodeRuneInString(term)
	if !isWordRune(first) || start == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:start])
	return !isWordRune(prev)
}

func boundaryAfter(s string, end int, term string) bool {
	last, _ := utf8.DecodeLastRuneInString(term)
	if !isWordRune(last) || end >= len(s) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(s[end:])
	return !isWordRune(next)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// match is the first lexicon term found in text and where it starts.
type match struct {
	term  string
	start int
}

// earliest returns the earliest match of any term, preferring the longer term
// when two start at the same offset.
func earliest(lower string, terms []string) (match, bool) {
	best := match{start: -1}
	for _, t := range terms {
		i := find(lower, t)
		if i < 0 {
			continue
		}
		if best.start < 0 || i < best.start || (i == best.start && len(t) > len(best.term)) {
			best = match{term: t, start: i}
		}
	}
	return best, best.start >= 0
}

// ContainsAny reports whether text contains any of terms on word boundaries.
func ContainsAny(text string, terms []string) bool {
	_, ok := earliest(normalize(text), terms)
	return ok
}

// CountAny counts how many distinct terms occur in text.
func CountAny(text string, terms []string) int {
	lower := normalize(text)
	n := 0
	for _, t := range terms {
		if find(lower, t) >= 0 {
			n++
		}
	}
	return n
}
