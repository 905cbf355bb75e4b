// Package phase tracks the conversational phase of a conversation.
//
// Transitions are always driven by the caller. The tracker only keeps the
// books: it closes the current phase into the history, starts the next one and
// counts completed cycles. Recommend is advisory and never applied
// automatically.
package phase

import (
	"slices"
	"time"

	"github.com/papercomputeco/strata/pkg/classify"
	"github.com/papercomputeco/strata/pkg/memory"
)

const defaultWindow = 5

// Tracker updates phase contexts and recommends next phases.
type Tracker struct {
	signals classify.Classifier[map[memory.Phase]int]
	window  int
}

// NewTracker creates a tracker. A nil classifier uses the default keyword
// lexicon; window <= 0 inspects the last 5 messages.
func NewTracker(signals classify.Classifier[map[memory.Phase]int], window int) *Tracker {
	if signals == nil {
		signals = classify.NewPhaseSignals(classify.DefaultLexicon())
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Tracker{signals: signals, window: window}
}

// Update closes the current phase with insights and moves pc to next. The
// cycle count increases only when next is intake and the history was not empty
// before this transition.
func (t *Tracker) Update(pc memory.PhaseContext, next memory.Phase, insights []string, now time.Time) (memory.PhaseContext, error) {
	if _, err := memory.ParsePhase(string(next)); err != nil {
		return pc, err
	}

	hadHistory := len(pc.PhaseHistory) > 0

	history := slices.Clone(pc.PhaseHistory)
	history = append(history, memory.PhaseRecord{
		Phase:       pc.CurrentPhase,
		StartedAt:   pc.PhaseStartedAt,
		CompletedAt: now,
		Insights:    slices.Clone(insights),
	})

	out := memory.PhaseContext{
		CurrentPhase:   next,
		PhaseStartedAt: now,
		PhaseHistory:   history,
		CycleCount:     pc.CycleCount,
	}
	if next == memory.PhaseIntake && hadHistory {
		out.CycleCount++
	}
	return out, nil
}

// Recommendation is a suggested next phase with the per-phase scores it was
// derived from.
type Recommendation struct {
	Phase   memory.Phase         `json:"phase"`
	Current memory.Phase         `json:"current"`
	Scores  map[memory.Phase]int `json:"scores"`
	Changed bool                 `json:"changed"`
}

// Recommend scores the most recent messages and suggests the phase with the
// highest score. Ties resolve in cycle order. With no signal at all the current
// phase is suggested.
func (t *Tracker) Recommend(entries []memory.Entry, current memory.Phase) Recommendation {
	start := max(0, len(entries)-t.window)

	scores := make(map[memory.Phase]int)
	for _, entry := range entries[start:] {
		for p, n := range t.signals.Classify(entry.Content) {
			scores[p] += n
		}
	}

	best, bestScore := current, 0
	for _, p := range memory.Phases {
		if scores[p] > bestScore {
			best, bestScore = p, scores[p]
		}
	}

	return Recommendation{
		Phase:   best,
		Current: current,
		Scores:  scores,
		Changed: best != current,
	}
}
