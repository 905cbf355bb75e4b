package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/compress"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage/tiered"
)

// tagKindPrefix prefixes the knowledge kind tag on remembered entries.
const tagKindPrefix = "kind:"

// MessageInput is an entry to append. An empty Role is user; an empty
// Importance is classified from Content.
type MessageInput struct {
	Role       memory.Role       `json:"role"`
	Content    string            `json:"content"`
	Importance memory.Importance `json:"importance,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
}

// AppendResult is the outcome of AppendMessage.
type AppendResult struct {
	Entry       memory.Entry        `json:"entry"`
	Outcome     tiered.WriteOutcome `json:"outcome"`
	Compression *compress.Result    `json:"compression,omitempty"`
}

// AppendMessage appends an entry to the conversation's active memory, pins it
// when critical, runs the automatic compression check and persists the
// conversation. It returns only once the cache and local tiers hold the
// entry.
func (s *Service) AppendMessage(ctx context.Context, conversationID string, in MessageInput) (AppendResult, error) {
	if strings.TrimSpace(in.Content) == "" {
		return AppendResult{}, memory.ErrEmptyContent
	}
	if in.Role == "" {
		in.Role = memory.RoleUser
	}
	if !in.Role.Valid() {
		return AppendResult{}, InvalidInputError{Field: "role", Value: string(in.Role)}
	}
	if in.Importance != "" && !in.Importance.Valid() {
		return AppendResult{}, InvalidInputError{Field: "importance", Value: string(in.Importance)}
	}

	unlock := s.lock(conversationID)
	defer unlock()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return AppendResult{}, err
	}

	entry, compressed := s.append(conv, in)

	outcome, err := s.save(ctx, conv)
	if err != nil {
		return AppendResult{}, err
	}
	return AppendResult{Entry: entry, Outcome: outcome, Compression: compressed}, nil
}

// append adds an entry to conv in memory and runs the automatic compression
// check.
func (s *Service) append(conv *memory.Conversation, in MessageInput) (memory.Entry, *compress.Result) {
	importance := in.Importance
	if importance == "" {
		importance = s.importance.Classify(in.Content)
	}

	entry := memory.Entry{
		ID:             s.newID(),
		ConversationID: conv.ConversationID,
		Role:           in.Role,
		Content:        in.Content,
		Importance:     importance,
		CreatedAt:      s.now(),
	}
	for _, t := range in.Tags {
		entry.AddTag(t)
	}

	conv.ActiveMemory = append(conv.ActiveMemory, entry)
	if entry.IsCritical() && !conv.HasCriticalFact(entry.ID) {
		conv.CriticalFacts = append(conv.CriticalFacts, entry)
	}
	conv.TotalMessages++

	if !s.compressor.NeedsCompression(conv) {
		return entry, nil
	}

	result := s.compressor.Compress(conv, s.compressor.AutoOptions())
	s.logger.Debug("active memory compressed",
		zap.String("conversation_id", conv.ConversationID),
		zap.Int("compressed", result.CompressedCount),
		zap.Int("preserved", result.PreservedCount),
		zap.Int("active", result.ActiveCount),
	)
	return entry, &result
}

// StoreExplicitKnowledge appends content the user asked to remember. The entry
// is always critical and tagged remembered.
func (s *Service) StoreExplicitKnowledge(ctx context.Context, conversationID, content string, kind memory.KnowledgeKind) (memory.Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return memory.Entry{}, memory.ErrEmptyContent
	}
	if kind == "" {
		kind = memory.KindFact
	}
	if kind == memory.KindForget {
		return memory.Entry{}, InvalidInputError{Field: "kind", Value: string(kind)}
	}

	unlock := s.lock(conversationID)
	defer unlock()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return memory.Entry{}, err
	}

	entry, _ := s.append(conv, MessageInput{
		Role:       memory.RoleUser,
		Content:    content,
		Importance: memory.ImportanceCritical,
		Tags:       []string{memory.TagRemembered, tagKindPrefix + string(kind)},
	})

	if _, err := s.save(ctx, conv); err != nil {
		return memory.Entry{}, err
	}
	return entry, nil
}

// Forget unpins remembered facts whose content contains content, ignoring
// case. The active copies stay in the history demoted to low importance and
// tagged forgotten, so compression can fold them. It returns the number of
// facts removed; zero leaves the conversation untouched.
func (s *Service) Forget(ctx context.Context, conversationID, content string) (int, error) {
	needle := strings.ToLower(strings.TrimSpace(content))
	if needle == "" {
		return 0, memory.ErrEmptyContent
	}

	unlock := s.lock(conversationID)
	defer unlock()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return 0, err
	}

	forgotten := make(map[string]struct{})
	kept := conv.CriticalFacts[:0]
	for _, fact := range conv.CriticalFacts {
		if fact.HasTag(memory.TagRemembered) && strings.Contains(strings.ToLower(fact.Content), needle) {
			forgotten[fact.ID] = struct{}{}
			continue
		}
		kept = append(kept, fact)
	}
	if len(forgotten) == 0 {
		return 0, nil
	}
	conv.CriticalFacts = kept

	for i := range conv.ActiveMemory {
		e := &conv.ActiveMemory[i]
		if _, ok := forgotten[e.ID]; ok {
			e.Importance = memory.ImportanceLow
			e.AddTag(memory.TagForgotten)
		}
	}

	if _, err := s.save(ctx, conv); err != nil {
		return 0, err
	}
	return len(forgotten), nil
}

// Compress runs a manual compression pass. A nil opts folds everything above
// the target size. A pass with nothing to fold does not write.
func (s *Service) Compress(ctx context.Context, conversationID string, opts *compress.Options) (compress.Result, error) {
	o := s.compressor.ManualOptions()
	if opts != nil {
		o = *opts
	}

	unlock := s.lock(conversationID)
	defer unlock()

	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return compress.Result{}, err
	}

	result := s.compressor.Compress(conv, o)
	if result.CompressedCount == 0 && result.MergedBlocks == 0 {
		return result, nil
	}

	if _, err := s.save(ctx, conv); err != nil {
		return compress.Result{}, err
	}
	return result, nil
}
