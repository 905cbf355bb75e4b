package classify

import (
	"github.com/papercomputeco/strata/pkg/memory"
)

// Importance classifies text into an importance level:
// explicit pinning phrases are critical, goal and requirement language is
// high, questions are medium and everything else is low.
type Importance struct {
	lex Lexicon
}

// NewImportance returns a keyword importance classifier over lex.
func NewImportance(lex Lexicon) *Importance {
	return &Importance{lex: lex}
}

// Classify implements Classifier.
func (c *Importance) Classify(text string) memory.Importance {
	lower := normalize(text)

	if _, ok := earliest(lower, c.lex.Critical); ok {
		return memory.ImportanceCritical
	}
	if _, ok := earliest(lower, c.lex.High); ok {
		return memory.ImportanceHigh
	}
	if _, ok := earliest(lower, c.lex.Question); ok {
		return memory.ImportanceMedium
	}
	return memory.ImportanceLow
}

// Insights classifies text into zero or more insight categories, returned in
// wisdom, pattern, gotcha order.
type Insights struct {
	lex Lexicon
}

// NewInsights returns a keyword insight classifier over lex.
func NewInsights(lex Lexicon) *Insights {
	return &Insights{lex: lex}
}

// Classify implements Classifier.
func (c *Insights) Classify(text string) []memory.InsightCategory {
	lower := normalize(text)

	var out []memory.InsightCategory
	if _, ok := earliest(lower, c.lex.Wisdom); ok {
		out = append(out, memory.InsightWisdom)
	}
	if _, ok := earliest(lower, c.lex.Pattern); ok {
		out = append(out, memory.InsightPattern)
	}
	if _, ok := earliest(lower, c.lex.Gotcha); ok {
		out = append(out, memory.InsightGotcha)
	}
	return out
}

// PhaseSignals scores text against each phase's signal words.
type PhaseSignals struct {
	lex Lexicon
}

// NewPhaseSignals returns a keyword phase signal classifier over lex.
func NewPhaseSignals(lex Lexicon) *PhaseSignals {
	return &PhaseSignals{lex: lex}
}

// Classify returns the number of distinct signal terms matched per phase.
// Phases without a match are omitted.
func (c *PhaseSignals) Classify(text string) map[memory.Phase]int {
	scores := make(map[memory.Phase]int)
	for _, p := range memory.Phases {
		if n := CountAny(text, c.lex.Phase[p]); n > 0 {
			scores[p] = n
		}
	}
	return scores
}

// Kind classifies remembered content into a knowledge kind.
type Kind struct {
	lex Lexicon
}

// NewKind returns a keyword knowledge kind classifier over lex.
func NewKind(lex Lexicon) *Kind {
	return &Kind{lex: lex}
}

// Classify implements Classifier.
func (c *Kind) Classify(text string) memory.KnowledgeKind {
	lower := normalize(text)

	switch {
	case hasAny(lower, c.lex.Preference):
		return memory.KindPreference
	case hasAny(lower, c.lex.Instruction):
		return memory.KindInstruction
	case hasAny(lower, c.lex.Personal):
		return memory.KindPersonal
	}
	return memory.KindFact
}

func hasAny(lower string, terms []string) bool {
	_, ok := earliest(lower, terms)
	return ok
}

// Compile time checks
var (
	_ Classifier[memory.Importance]        = (*Importance)(nil)
	_ Classifier[[]memory.InsightCategory] = (*Insights)(nil)
	_ Classifier[map[memory.Phase]int]     = (*PhaseSignals)(nil)
	_ Classifier[memory.KnowledgeKind]     = (*Kind)(nil)
)
