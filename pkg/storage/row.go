package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/strata/pkg/memory"
)

// Row is the persisted shape of a conversation shared by the SQL tiers: one
// row per conversation with the memory tiers stored as JSON documents.
type Row struct {
	ConversationID   string
	UserID           string
	ActiveMemory     string
	CompressedMemory string
	CriticalFacts    string
	UserContext      string
	PhaseContext     string
	TotalMessages    int
	CreatedAt        time.Time
	LastActiveAt     time.Time
	UpdatedAt        time.Time
}

// EncodeRow flattens conv into a Row.
func EncodeRow(conv *memory.Conversation) (Row, error) {
	if conv == nil || conv.ConversationID == "" {
		return Row{}, memory.ErrEmptyConversationID
	}

	row := Row{
		ConversationID: conv.ConversationID,
		UserID:         conv.UserID,
		TotalMessages:  conv.TotalMessages,
		CreatedAt:      conv.CreatedAt.UTC(),
		LastActiveAt:   conv.LastActiveAt.UTC(),
		UpdatedAt:      conv.UpdatedAt.UTC(),
	}

	fields := []struct {
		name string
		dst  *string
		src  any
	}{
		{"active_memory", &row.ActiveMemory, nonNil(conv.ActiveMemory)},
		{"compressed_memory", &row.CompressedMemory, nonNil(conv.CompressedMemory)},
		{"critical_facts", &row.CriticalFacts, nonNil(conv.CriticalFacts)},
		{"user_context", &row.UserContext, conv.UserContext},
		{"phase_context", &row.PhaseContext, conv.PhaseContext},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.src)
		if err != nil {
			return Row{}, fmt.Errorf("encoding %s: %w", f.name, err)
		}
		*f.dst = string(b)
	}

	return row, nil
}

// Decode rebuilds the conversation stored in r.
func (r Row) Decode() (*memory.Conversation, error) {
	conv := &memory.Conversation{
		ConversationID: r.ConversationID,
		UserID:         r.UserID,
		TotalMessages:  r.TotalMessages,
		CreatedAt:      r.CreatedAt.UTC(),
		LastActiveAt:   r.LastActiveAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}

	fields := []struct {
		name string
		src  string
		dst  any
	}{
		{"active_memory", r.ActiveMemory, &conv.ActiveMemory},
		{"compressed_memory", r.CompressedMemory, &conv.CompressedMemory},
		{"critical_facts", r.CriticalFacts, &conv.CriticalFacts},
		{"user_context", r.UserContext, &conv.UserContext},
		{"phase_context", r.PhaseContext, &conv.PhaseContext},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.name, err)
		}
	}

	if conv.ActiveMemory == nil {
		conv.ActiveMemory = []memory.Entry{}
	}
	if conv.CompressedMemory == nil {
		conv.CompressedMemory = []memory.CompressedBlock{}
	}
	if conv.CriticalFacts == nil {
		conv.CriticalFacts = []memory.Entry{}
	}
	if conv.UserContext == nil {
		conv.UserContext = map[string]string{}
	}
	return conv, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
