package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/classify"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage/tiered"
)

// BuildContext assembles the model-facing view of a conversation: the most
// recent active entries, every critical fact, every compressed block and the
// user profile merged over defaults. It never writes. A non-empty userID
// overrides the conversation's owner on the returned view.
func (s *Service) BuildContext(ctx context.Context, conversationID, userID string) (*memory.AssistantContext, error) {
	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		userID = conv.UserID
	}

	start := max(0, len(conv.ActiveMemory)-s.window)
	return &memory.AssistantContext{
		ConversationID:   conv.ConversationID,
		UserID:           userID,
		RecentMessages:   slices.Clone(conv.ActiveMemory[start:]),
		CriticalFacts:    slices.Clone(conv.CriticalFacts),
		CompressedMemory: slices.Clone(conv.CompressedMemory),
		UserProfile:      profile(conv.UserContext),
		CurrentPhase:     conv.PhaseContext.CurrentPhase,
		PhaseContext:     conv.PhaseContext,
		TotalMessages:    conv.TotalMessages,
		Online:           s.store.IsOnline(),
	}, nil
}

// QueryResolution is what the local memory knows about a query.
type QueryResolution struct {
	// Keywords are the significant words the query was matched on.
	Keywords []string `json:"keywords"`

	// Matches are critical and active entries sharing a keyword with the
	// query, critical facts first.
	Matches []memory.Entry `json:"matches"`

	// Blocks are compressed blocks whose summary shares a keyword.
	Blocks []memory.CompressedBlock `json:"blocks"`

	// Pending is set when the query was deferred for the remote side.
	Pending *memory.PendingQuery `json:"pending,omitempty"`

	// Outcome is how far the deferred query got.
	Outcome tiered.WriteOutcome `json:"outcome,omitempty"`

	Online bool `json:"online"`
}

// Answerable reports whether local memory had anything relevant.
func (r QueryResolution) Answerable() bool {
	return len(r.Matches) > 0 || len(r.Blocks) > 0
}

// ResolveQuery searches the conversation's memory for entries relevant to
// query. When the remote tier is unreachable and nothing local matches, the
// query is deferred as a pending query to be reprocessed once back online.
func (s *Service) ResolveQuery(ctx context.Context, conversationID, userID, query string) (QueryResolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return QueryResolution{}, memory.ErrEmptyContent
	}

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return QueryResolution{}, err
	}
	if userID == "" {
		userID = conv.UserID
	}

	res := QueryResolution{
		Keywords: s.compressor.Keywords(query, 0),
		Matches:  []memory.Entry{},
		Blocks:   []memory.CompressedBlock{},
		Online:   s.store.IsOnline(),
	}

	if len(res.Keywords) > 0 {
		seen := make(map[string]struct{})
		for _, group := range [][]memory.Entry{conv.CriticalFacts, conv.ActiveMemory} {
			for _, e := range group {
				if _, dup := seen[e.ID]; dup || !classify.ContainsAny(e.Content, res.Keywords) {
					continue
				}
				seen[e.ID] = struct{}{}
				res.Matches = append(res.Matches, e)
			}
		}
		for _, b := range conv.CompressedMemory {
			if classify.ContainsAny(b.Summary, res.Keywords) {
				res.Blocks = append(res.Blocks, b)
			}
		}
	}

	if res.Online || res.Answerable() {
		return res, nil
	}

	pending := memory.PendingQuery{
		ID:             s.newID(),
		ConversationID: conv.ConversationID,
		UserID:         userID,
		Query:          query,
		QueuedAt:       s.now(),
	}
	outcome, err := s.store.EnqueuePendingQuery(ctx, pending)
	if err != nil {
		return QueryResolution{}, fmt.Errorf("deferring query: %w", err)
	}

	s.logger.Info("query deferred until back online",
		zap.String("conversation_id", conv.ConversationID),
		zap.String("query_id", pending.ID),
		zap.String("outcome", string(outcome)),
	)

	res.Pending = &pending
	res.Outcome = outcome
	return res, nil
}
