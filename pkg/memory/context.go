package memory

import "time"

// AssistantContext is the read-only view handed to the external model.
type AssistantContext struct {
	ConversationID   string            `json:"conversation_id"`
	UserID           string            `json:"user_id"`
	RecentMessages   []Entry           `json:"recent_messages"`
	CriticalFacts    []Entry           `json:"critical_facts"`
	CompressedMemory []CompressedBlock `json:"compressed_memory"`
	UserProfile      map[string]string `json:"user_profile"`
	CurrentPhase     Phase             `json:"current_phase"`
	PhaseContext     PhaseContext      `json:"phase_context"`
	TotalMessages    int               `json:"total_messages"`
	Online           bool              `json:"online"`
}

// KnowledgeKind classifies explicitly remembered content.
type KnowledgeKind string

const (
	KindFact        KnowledgeKind = "fact"
	KindPreference  KnowledgeKind = "preference"
	KindInstruction KnowledgeKind = "instruction"
	KindPersonal    KnowledgeKind = "personal"
	KindForget      KnowledgeKind = "forget"
)

// Intent is the result of classifying raw text for memory commands.
type Intent struct {
	ShouldStore      bool          `json:"should_store"`
	ShouldAsk        bool          `json:"should_ask"`
	Kind             KnowledgeKind `json:"kind,omitempty"`
	ExtractedContent string        `json:"extracted_content,omitempty"`
}

// IsForget reports whether the intent asks to drop remembered content.
func (i Intent) IsForget() bool {
	return i.Kind == KindForget
}

// PendingQuery is a raw user query deferred while offline because no local
// knowledge could answer it.
type PendingQuery struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Query          string    `json:"query"`
	QueuedAt       time.Time `json:"queued_at"`
}
