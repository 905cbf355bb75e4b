// Package service is the memory facade: the only entry point the HTTP API,
// the MCP tools and the CLI use to read and write conversation memory.
//
// Every mutating operation loads the conversation through the tiered store,
// changes it under a per-conversation lock and writes the whole aggregate
// back. Different conversations proceed in parallel.
package service

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/moby/locker"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/classify"
	"github.com/papercomputeco/strata/pkg/compress"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/phase"
	"github.com/papercomputeco/strata/pkg/storage/tiered"
	"github.com/papercomputeco/strata/pkg/syncqueue"
)

const defaultContextWindow = 10

// defaultProfile fills user profile keys the conversation does not set.
var defaultProfile = map[string]string{
	"role":                "user",
	"experience_level":    "intermediate",
	"communication_style": "balanced",
	"interests":           "",
}

// Store is the conversation persistence the service runs on.
type Store interface {
	Get(ctx context.Context, conversationID string) (*memory.Conversation, bool, error)
	Put(ctx context.Context, conv *memory.Conversation, op syncqueue.Operation) (tiered.WriteOutcome, error)
	EnqueuePendingQuery(ctx context.Context, q memory.PendingQuery) (tiered.WriteOutcome, error)
	IsOnline() bool
}

// Config is the configuration for a Service.
type Config struct {
	// Store persists conversations.
	Store Store

	// Compressor bounds active memory (defaults to an engine with default
	// settings).
	Compressor *compress.Engine

	// Tracker keeps phase books (defaults to the keyword tracker).
	Tracker *phase.Tracker

	// Importance rates entries appended without an importance.
	Importance classify.Classifier[memory.Importance]

	// Intents detects memory commands.
	Intents classify.Classifier[memory.Intent]

	// ContextWindow is how many recent entries BuildContext returns
	// (defaults to 10).
	ContextWindow int

	// Logger is the provided zap logger
	Logger *zap.Logger

	// Now is the service clock (defaults to time.Now).
	Now func() time.Time

	// NewID generates entry and query ids (defaults to uuid.NewString).
	NewID func() string
}

// Service implements the memory operations.
type Service struct {
	store      Store
	compressor *compress.Engine
	tracker    *phase.Tracker
	importance classify.Classifier[memory.Importance]
	intents    classify.Classifier[memory.Intent]
	window     int
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string

	// locks serializes writers per conversation id. An id's lock is released
	// from the table once nobody holds or waits on it.
	locks *locker.Locker
}

// New creates a Service.
func New(c Config) (*Service, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("service requires a store")
	}

	lex := classify.DefaultLexicon()
	if c.Compressor == nil {
		c.Compressor = compress.NewEngine(compress.Config{Now: c.Now})
	}
	if c.Tracker == nil {
		c.Tracker = phase.NewTracker(nil, 0)
	}
	if c.Importance == nil {
		c.Importance = classify.NewImportance(lex)
	}
	if c.Intents == nil {
		c.Intents = classify.NewIntents(lex)
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = defaultContextWindow
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}

	return &Service{
		store:      c.Store,
		compressor: c.Compressor,
		tracker:    c.Tracker,
		importance: c.Importance,
		intents:    c.Intents,
		window:     c.ContextWindow,
		logger:     c.Logger,
		now:        c.Now,
		newID:      c.NewID,
		locks:      locker.New(),
	}, nil
}

// Online reports whether the remote tier is currently reachable.
func (s *Service) Online() bool {
	return s.store.IsOnline()
}

// Initialize returns the conversation, creating and persisting an empty one
// when no tier has it. initialContext seeds the user profile of a new
// conversation and is ignored for an existing one.
func (s *Service) Initialize(ctx context.Context, conversationID, userID string, initialContext map[string]string) (*memory.Conversation, error) {
	if conversationID == "" {
		return nil, memory.ErrEmptyConversationID
	}

	unlock := s.lock(conversationID)
	defer unlock()

	conv, found, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}
	if found {
		return conv, nil
	}

	conv = memory.NewConversation(conversationID, userID, initialContext, s.now())
	outcome, err := s.store.Put(ctx, conv, syncqueue.OpCreate)
	if err != nil {
		return nil, fmt.Errorf("persisting conversation %s: %w", conversationID, err)
	}

	s.logger.Debug("conversation initialized",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", userID),
		zap.String("outcome", string(outcome)),
	)
	return conv, nil
}

// DetectMemoryIntent classifies raw text for memory commands. It has no side
// effects.
func (s *Service) DetectMemoryIntent(content string) memory.Intent {
	return s.intents.Classify(content)
}

// lock serializes writers of one conversation and returns the unlock func.
func (s *Service) lock(conversationID string) func() {
	s.locks.Lock(conversationID)
	return func() {
		if err := s.locks.Unlock(conversationID); err != nil {
			s.logger.Error("conversation unlock failed", zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}
}

// load reads a conversation that must exist.
func (s *Service) load(ctx context.Context, conversationID string) (*memory.Conversation, error) {
	if conversationID == "" {
		return nil, memory.ErrEmptyConversationID
	}

	conv, found, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}
	if !found {
		return nil, memory.ConversationNotFoundError{ConversationID: conversationID}
	}
	return conv, nil
}

// save stamps conv and writes it back.
func (s *Service) save(ctx context.Context, conv *memory.Conversation) (tiered.WriteOutcome, error) {
	now := s.now()
	conv.LastActiveAt = now
	conv.UpdatedAt = now

	outcome, err := s.store.Put(ctx, conv, syncqueue.OpUpdate)
	if err != nil {
		return "", fmt.Errorf("persisting conversation %s: %w", conv.ConversationID, err)
	}
	return outcome, nil
}

// profile merges the conversation's user context over the defaults.
func profile(userContext map[string]string) map[string]string {
	out := maps.Clone(defaultProfile)
	maps.Copy(out, userContext)
	return out
}
