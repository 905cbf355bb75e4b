package syncqueue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/strata/pkg/memory"
)

// Operation is the mutation an item replays.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Target names the remote store an item is replayed against.
type Target string

const (
	TargetConversations  Target = "conversations"
	TargetPendingQueries Target = "pending_queries"
)

// Payload is the statically typed body of an item. It is one of
// ConversationPayload or PendingQueryPayload.
type Payload interface {
	// Target is the remote store the payload belongs to.
	Target() Target

	// Key is the logical record the payload mutates.
	Key() string

	isPayload()
}

// ConversationPayload carries a conversation snapshot. Delete items carry only
// the id.
type ConversationPayload struct {
	ConversationID string               `json:"conversation_id"`
	Conversation   *memory.Conversation `json:"conversation,omitempty"`
}

func (ConversationPayload) Target() Target { return TargetConversations }

func (p ConversationPayload) Key() string { return p.ConversationID }

func (ConversationPayload) isPayload() {}

// PendingQueryPayload carries a query deferred while offline.
type PendingQueryPayload struct {
	Query memory.PendingQuery `json:"query"`
}

func (PendingQueryPayload) Target() Target { return TargetPendingQueries }

func (p PendingQueryPayload) Key() string { return p.Query.ConversationID }

func (PendingQueryPayload) isPayload() {}

// Item is one pending mutation of the remote store.
type Item struct {
	ID          string
	Operation   Operation
	Payload     Payload
	CreatedAt   time.Time
	Attempts    int
	LastAttempt time.Time
	LastError   string
}

// NewConversationItem builds an item that upserts or deletes conv.
func NewConversationItem(op Operation, conv *memory.Conversation, now time.Time) Item {
	p := ConversationPayload{ConversationID: conv.ConversationID}
	if op != OpDelete {
		p.Conversation = conv.Clone()
	}
	return Item{
		ID:        uuid.NewString(),
		Operation: op,
		Payload:   p,
		CreatedAt: now,
	}
}

// NewPendingQueryItem builds an item that stores q remotely.
func NewPendingQueryItem(q memory.PendingQuery, now time.Time) Item {
	return Item{
		ID:        uuid.NewString(),
		Operation: OpCreate,
		Payload:   PendingQueryPayload{Query: q},
		CreatedAt: now,
	}
}

// TargetStore is the remote store the item is replayed against.
func (i Item) TargetStore() Target {
	if i.Payload == nil {
		return ""
	}
	return i.Payload.Target()
}

// Key is the logical record the item mutates.
func (i Item) Key() string {
	if i.Payload == nil {
		return ""
	}
	return i.Payload.Key()
}

// ErrUnknownTarget is returned when a stored payload names no known target.
var ErrUnknownTarget = errors.New("unknown sync target")

// EncodePayload serializes p for a durable store.
func EncodePayload(p Payload) (string, error) {
	if p == nil {
		return "", errors.New("nil payload")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding %s payload: %w", p.Target(), err)
	}
	return string(b), nil
}

// DecodePayload rebuilds the payload stored for target.
func DecodePayload(target Target, data string) (Payload, error) {
	switch target {
	case TargetConversations:
		var p ConversationPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", target, err)
		}
		return p, nil
	case TargetPendingQueries:
		var p PendingQueryPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", target, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
}
