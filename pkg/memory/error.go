package memory

import "errors"

// ErrEmptyContent is returned when an entry or query has no text.
var ErrEmptyContent = errors.New("content is empty")

// ErrEmptyConversationID is returned when an operation is addressed to an
// empty conversation id.
var ErrEmptyConversationID = errors.New("conversation id is empty")

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidPhase         = errors.New("invalid phase")
)

// ConversationNotFoundError is returned when a conversation has not been
// initialized in any storage tier.
type ConversationNotFoundError struct {
	ConversationID string
}

func (e ConversationNotFoundError) Error() string {
	if e.ConversationID == "" {
		return "conversation not found"
	}
	return "conversation not found: " + e.ConversationID
}

func (e ConversationNotFoundError) Is(target error) bool {
	return target == ErrConversationNotFound
}

// InvalidPhaseError is returned for unknown phase names.
type InvalidPhaseError struct {
	Phase string
}

func (e InvalidPhaseError) Error() string {
	return "invalid phase: " + e.Phase
}

func (e InvalidPhaseError) Is(target error) bool {
	return target == ErrInvalidPhase
}
