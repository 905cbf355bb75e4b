package classify

import "github.com/papercomputeco/strata/pkg/memory"

// SoftSignal is a phrase suggesting personal information worth asking about
// before storing.
type SoftSignal struct {
	Phrase string
	Kind   memory.KnowledgeKind
}

// Lexicon holds the word lists behind the keyword classifiers. Terms are
// lowercase and matched on word boundaries.
type Lexicon struct {
	// Importance
	Critical []string
	High     []string
	Question []string

	// Insight categories
	Wisdom  []string
	Pattern []string
	Gotcha  []string

	// Phase signals
	Phase map[memory.Phase][]string

	// Memory intents
	StoreCommands  []string
	ForgetCommands []string
	SoftSignals    []SoftSignal
	Preference     []string
	Instruction    []string
	Personal       []string

	// Stopwords are excluded from summary keywords.
	Stopwords []string
}

// DefaultLexicon returns the English word lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Critical: []string{
			"always remember", "important:", "never", "critical:", "don't ever",
			"do not ever", "must never", "must always",
		},
		High: []string{
			"goal", "goals", "requirement", "requirements", "required", "constraint",
			"constraints", "must", "need to", "deadline", "objective", "priority",
		},
		Question: []string{
			"?", "what", "why", "how", "when", "where", "who", "which",
			"can you", "could you", "would you",
		},
		Wisdom: []string{
			"learned", "learning", "insight", "realized", "realize", "lesson",
			"takeaway", "understand", "discovered", "key point", "principle",
		},
		Pattern: []string{
			"approach", "method", "solution", "pattern", "strategy", "technique",
			"workflow", "process", "steps", "framework",
		},
		Gotcha: []string{
			"error", "errors", "problem", "bug", "fix", "fixed", "issue", "fail",
			"failed", "failure", "broken", "mistake", "careful", "gotcha", "pitfall",
		},
		Phase: map[memory.Phase][]string{
			memory.PhaseIntake:   {"?", "what", "why", "how", "question", "explain", "tell me"},
			memory.PhaseReflect:  {"analyze", "analysis", "consider", "think about", "compare", "evaluate", "reflect"},
			memory.PhaseExecute:  {"build", "implement", "create", "write", "deploy", "code", "make"},
			memory.PhaseCompress: {"summarize", "summary", "recap", "tl;dr", "condense", "wrap up"},
			memory.PhaseGrow:     {"learn", "learned", "improve", "better", "next time", "grow", "lesson"},
		},
		StoreCommands: []string{
			"remember that", "remember this", "please remember", "remember:",
			"don't forget", "do not forget", "keep in mind", "note that", "save this",
			"make a note",
		},
		ForgetCommands: []string{
			"forget that", "forget about", "please forget", "forget this",
			"stop remembering", "don't remember", "do not remember", "forget:",
		},
		SoftSignals: []SoftSignal{
			{Phrase: "my name is", Kind: memory.KindPersonal},
			{Phrase: "call me", Kind: memory.KindPersonal},
			{Phrase: "i work as", Kind: memory.KindPersonal},
			{Phrase: "i work at", Kind: memory.KindPersonal},
			{Phrase: "i live in", Kind: memory.KindPersonal},
			{Phrase: "i am a", Kind: memory.KindPersonal},
			{Phrase: "i'm a", Kind: memory.KindPersonal},
			{Phrase: "i prefer", Kind: memory.KindPreference},
			{Phrase: "my favorite", Kind: memory.KindPreference},
			{Phrase: "my favourite", Kind: memory.KindPreference},
		},
		Preference:  []string{"prefer", "like", "love", "hate", "favorite", "favourite", "rather"},
		Instruction: []string{"always", "never", "should", "must", "don't", "do not", "make sure"},
		Personal:    []string{"my", "i am", "i'm", "me"},
		Stopwords: []string{
			"about", "above", "after", "again", "against", "because", "before",
			"being", "below", "between", "could", "doing", "during", "every",
			"further", "having", "other", "ought", "their", "theirs", "there",
			"these", "thing", "things", "those", "through", "under", "until",
			"where", "which", "while", "would", "yours", "yourself", "should",
			"still", "really", "maybe", "going", "think", "thanks", "please",
			"hello", "great", "right", "something", "anything", "always", "never",
		},
	}
}
