package classify

import (
	"strings"

	"github.com/papercomputeco/strata/pkg/memory"
)

// Intents detects explicit memory commands ("remember that ...",
// "forget about ...") and soft personal signals ("my name is ...") in raw
// text. It has no side effects.
type Intents struct {
	lex  Lexicon
	kind *Kind
}

// NewIntents returns a keyword intent classifier over lex.
func NewIntents(lex Lexicon) *Intents {
	return &Intents{
		lex:  lex,
		kind: NewKind(lex),
	}
}

// Classify implements Classifier.
func (c *Intents) Classify(text string) memory.Intent {
	lower := normalize(text)

	store, hasStore := earliest(lower, c.lex.StoreCommands)
	forget, hasForget := earliest(lower, c.lex.ForgetCommands)

	switch {
	case hasForget && (!hasStore || before(forget, store)):
		content := extractAfter(text, lower, forget)
		if content == "" {
			return memory.Intent{ShouldAsk: true, Kind: memory.KindForget}
		}
		return memory.Intent{Kind: memory.KindForget, ExtractedContent: content}

	case hasStore:
		content := extractAfter(text, lower, store)
		if content == "" {
			return memory.Intent{ShouldAsk: true, Kind: memory.KindFact}
		}
		return memory.Intent{
			ShouldStore:      true,
			Kind:             c.kind.Classify(content),
			ExtractedContent: content,
		}
	}

	best := -1
	var signal SoftSignal
	for _, s := range c.lex.SoftSignals {
		i := find(lower, s.Phrase)
		if i >= 0 && (best < 0 || i < best) {
			best, signal = i, s
		}
	}
	if best < 0 {
		return memory.Intent{}
	}

	return memory.Intent{
		ShouldAsk:        true,
		Kind:             signal.Kind,
		ExtractedContent: sentenceAt(text, lower, best),
	}
}

// before orders two matches by offset, the longer term winning a tie.
func before(a, b match) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return len(a.term) > len(b.term)
}

// extractAfter returns the text following m with leading separators and
// trailing sentence punctuation removed.
func extractAfter(text, lower string, m match) string {
	src := source(text, lower)
	return cleanFragment(src[m.start+len(m.term):])
}

// sentenceAt returns the sentence that starts at byte offset i of lower.
func sentenceAt(text, lower string, i int) string {
	rest := source(text, lower)[i:]
	if j := strings.IndexAny(rest, ".!?\n"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// source picks the string extracted content is sliced from. Offsets are found
// in lower, so the original casing is kept only when normalizing did not
// change byte widths.
func source(text, lower string) string {
	if len(text) == len(lower) {
		return text
	}
	return lower
}

func cleanFragment(s string) string {
	s = strings.TrimLeft(s, " \t\n:,-")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " .!")
	if len(s) > 5 && strings.EqualFold(s[:5], "that ") {
		s = strings.TrimSpace(s[5:])
	}
	return s
}

var _ Classifier[memory.Intent] = (*Intents)(nil)
