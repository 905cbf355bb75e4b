package service

import (
	"context"
	"strings"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/phase"
)

// UpdatePhase moves the conversation to next. Non-empty insights close the
// current phase and are also appended as a system entry tagged phase-insight.
func (s *Service) UpdatePhase(ctx context.Context, conversationID string, next memory.Phase, insights []string) (memory.PhaseContext, error) {
	if _, err := memory.ParsePhase(string(next)); err != nil {
		return memory.PhaseContext{}, err
	}

	unlock := s.lock(conversationID)
	defer unlock()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return memory.PhaseContext{}, err
	}

	closing := conv.PhaseContext.CurrentPhase
	pc, err := s.tracker.Update(conv.PhaseContext, next, insights, s.now())
	if err != nil {
		return memory.PhaseContext{}, err
	}
	conv.PhaseContext = pc

	if text := insightText(closing, insights); text != "" {
		s.append(conv, MessageInput{
			Role:       memory.RoleSystem,
			Content:    text,
			Importance: memory.ImportanceHigh,
			Tags:       []string{memory.TagPhaseInsight},
		})
	}

	if _, err := s.save(ctx, conv); err != nil {
		return memory.PhaseContext{}, err
	}
	return pc, nil
}

func insightText(closing memory.Phase, insights []string) string {
	kept := make([]string, 0, len(insights))
	for _, in := range insights {
		if in = strings.TrimSpace(in); in != "" {
			kept = append(kept, in)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return "Insights from " + string(closing) + " phase: " + strings.Join(kept, "; ")
}

// RecommendPhase suggests a next phase from the most recent active entries. It
// is advisory and never changes the conversation.
func (s *Service) RecommendPhase(ctx context.Context, conversationID string) (phase.Recommendation, error) {
	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return phase.Recommendation{}, err
	}
	return s.tracker.Recommend(conv.ActiveMemory, conv.PhaseContext.CurrentPhase), nil
}
