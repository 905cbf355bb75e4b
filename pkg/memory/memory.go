// Package memory defines the conversation memory model shared by the
// compression engine, the phase tracker, the storage tiers and the service
// facade.
//
// A [Conversation] is the aggregate root. It owns three memory tiers:
//
//   - ActiveMemory: recent entries kept verbatim, bounded by compression.
//   - CompressedMemory: digests of older entries folded out of the active tier.
//   - CriticalFacts: pinned entries that compression never drops.
//
// Every appended entry lives in exactly one of ActiveMemory or one
// CompressedBlock. Critical entries are additionally copied into
// CriticalFacts.
package memory

import (
	"slices"
	"time"
)

// Role identifies the author of an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Importance ranks an entry. Critical entries are pinned.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// Rank orders importances from 0 (low) to 3 (critical). Unknown values rank
// as low.
func (i Importance) Rank() int {
	switch i {
	case ImportanceMedium:
		return 1
	case ImportanceHigh:
		return 2
	case ImportanceCritical:
		return 3
	}
	return 0
}

// Valid reports whether i is a known importance.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh, ImportanceCritical:
		return true
	}
	return false
}

// Well known entry tags.
const (
	TagPhaseInsight = "phase-insight"
	TagRemembered   = "remembered"
	TagForgotten    = "forgotten"
)

// Entry is one unit of stored conversational content.
type Entry struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Role           Role       `json:"role"`
	Content        string     `json:"content"`
	Importance     Importance `json:"importance"`
	Tags           []string   `json:"tags,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsCritical reports whether the entry is pinned.
func (e Entry) IsCritical() bool {
	return e.Importance == ImportanceCritical
}

// HasTag reports whether the entry carries tag.
func (e Entry) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// AddTag adds tag if it is not already present.
func (e *Entry) AddTag(tag string) {
	if !e.HasTag(tag) {
		e.Tags = append(e.Tags, tag)
	}
}

func (e Entry) clone() Entry {
	e.Tags = slices.Clone(e.Tags)
	return e
}

// InsightCategory labels a key insight extracted during compression.
type InsightCategory string

const (
	InsightWisdom  InsightCategory = "wisdom"
	InsightPattern InsightCategory = "pattern"
	InsightGotcha  InsightCategory = "gotcha"
)

// Insight is a short excerpt tagged with the category it matched.
type Insight struct {
	Category InsightCategory `json:"category"`
	Text     string          `json:"text"`
}

// TimeRange spans the creation times of the entries folded into a block.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CompressedBlock is the digest of a contiguous run of evicted entries.
type CompressedBlock struct {
	ID            string     `json:"id"`
	OriginalCount int        `json:"original_count"`
	TimeRange     TimeRange  `json:"time_range"`
	Summary       string     `json:"summary"`
	KeyInsights   []Insight  `json:"key_insights,omitempty"`
	Importance    Importance `json:"importance"`
	CreatedAt     time.Time  `json:"created_at"`
}
