package memory

import (
	"maps"
	"slices"
	"time"
)

// Phase is the conversational phase label tracked per conversation.
type Phase string

const (
	PhaseIntake   Phase = "intake"
	PhaseReflect  Phase = "reflect"
	PhaseExecute  Phase = "execute"
	PhaseCompress Phase = "compress"
	PhaseGrow     Phase = "grow"
)

// Phases lists every phase in cycle order.
var Phases = []Phase{PhaseIntake, PhaseReflect, PhaseExecute, PhaseCompress, PhaseGrow}

// ParsePhase validates s as a phase name.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !slices.Contains(Phases, p) {
		return "", InvalidPhaseError{Phase: s}
	}
	return p, nil
}

// PhaseRecord is one completed phase in the history.
type PhaseRecord struct {
	Phase       Phase     `json:"phase"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Insights    []string  `json:"insights,omitempty"`
}

// PhaseContext is the phase bookkeeping state of a conversation.
type PhaseContext struct {
	CurrentPhase   Phase         `json:"current_phase"`
	PhaseStartedAt time.Time     `json:"phase_started_at"`
	PhaseHistory   []PhaseRecord `json:"phase_history,omitempty"`
	CycleCount     int           `json:"cycle_count"`
}

// NewPhaseContext returns the default context: intake, started at now.
func NewPhaseContext(now time.Time) PhaseContext {
	return PhaseContext{
		CurrentPhase:   PhaseIntake,
		PhaseStartedAt: now,
	}
}

func (p PhaseContext) clone() PhaseContext {
	history := make([]PhaseRecord, len(p.PhaseHistory))
	for i, r := range p.PhaseHistory {
		r.Insights = slices.Clone(r.Insights)
		history[i] = r
	}
	if p.PhaseHistory == nil {
		history = nil
	}
	p.PhaseHistory = history
	return p
}

// Conversation is the aggregate root persisted once per conversation. Its JSON
// form is the row shape written to every storage tier.
type Conversation struct {
	ConversationID   string            `json:"conversation_id"`
	UserID           string            `json:"user_id"`
	ActiveMemory     []Entry           `json:"active_memory"`
	CompressedMemory []CompressedBlock `json:"compressed_memory"`
	CriticalFacts    []Entry           `json:"critical_facts"`
	UserContext      map[string]string `json:"user_context"`
	PhaseContext     PhaseContext      `json:"phase_context"`
	TotalMessages    int               `json:"total_messages"`
	CreatedAt        time.Time         `json:"created_at"`
	LastActiveAt     time.Time         `json:"last_active_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewConversation builds an empty conversation with the default phase context.
func NewConversation(conversationID, userID string, userContext map[string]string, now time.Time) *Conversation {
	uc := make(map[string]string, len(userContext))
	maps.Copy(uc, userContext)

	return &Conversation{
		ConversationID:   conversationID,
		UserID:           userID,
		ActiveMemory:     []Entry{},
		CompressedMemory: []CompressedBlock{},
		CriticalFacts:    []Entry{},
		UserContext:      uc,
		PhaseContext:     NewPhaseContext(now),
		CreatedAt:        now,
		LastActiveAt:     now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy. Storage tiers hold copies, never the caller's
// instance.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}

	out := *c
	out.ActiveMemory = cloneEntries(c.ActiveMemory)
	out.CriticalFacts = cloneEntries(c.CriticalFacts)
	out.CompressedMemory = make([]CompressedBlock, len(c.CompressedMemory))
	for i, b := range c.CompressedMemory {
		b.KeyInsights = slices.Clone(b.KeyInsights)
		out.CompressedMemory[i] = b
	}
	out.UserContext = maps.Clone(c.UserContext)
	out.PhaseContext = c.PhaseContext.clone()

	return &out
}

// CompressedCount is the number of entries folded into compressed blocks.
func (c *Conversation) CompressedCount() int {
	n := 0
	for _, b := range c.CompressedMemory {
		n += b.OriginalCount
	}
	return n
}

// HasCriticalFact reports whether an entry with id is pinned.
func (c *Conversation) HasCriticalFact(id string) bool {
	return slices.ContainsFunc(c.CriticalFacts, func(e Entry) bool {
		return e.ID == id
	})
}

func cloneEntries(in []Entry) []Entry {
	if in == nil {
		return nil
	}
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e.clone()
	}
	return out
}
