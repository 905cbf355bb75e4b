// Package eventstream defines the status channel of the memory engine:
// transport-neutral events about synchronization and connectivity, and the
// publishers that carry them.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSyncDropped is emitted when a queued remote write is dropped
	// without being applied. It is a data loss event for that write.
	EventTypeSyncDropped = "strata.sync.dropped"

	// EventTypeSyncDrained is emitted after a sync queue drain pass.
	EventTypeSyncDrained = "strata.sync.drained"

	// EventTypeConnectivity is emitted when the remote tier goes offline or
	// comes back.
	EventTypeConnectivity = "strata.connectivity.changed"
)

// Drop reasons.
const (
	ReasonRejected     = "rejected"
	ReasonRetryCeiling = "retry_ceiling"
)

// Event is a transport-neutral event payload.
type Event struct {
	SchemaVersion int               `json:"schema_version"`
	EventType     string            `json:"event_type"`
	EventID       string            `json:"event_id"`
	EmittedAt     time.Time         `json:"emitted_at"`
	Source        EventSource       `json:"source"`
	SyncItem      *SyncItemMeta     `json:"sync_item,omitempty"`
	Drain         *DrainMeta        `json:"drain,omitempty"`
	Connectivity  *ConnectivityMeta `json:"connectivity,omitempty"`
}

// EventSource identifies the emitting process.
type EventSource struct {
	Service  string `json:"service"`
	Instance string `json:"instance,omitempty"`
}

// SyncItemMeta describes a single sync queue item.
type SyncItemMeta struct {
	ItemID      string    `json:"item_id"`
	Operation   string    `json:"operation"`
	TargetStore string    `json:"target_store"`
	RecordKey   string    `json:"record_key"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// DrainMeta summarizes a drain pass.
type DrainMeta struct {
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
	Remaining int `json:"remaining"`
}

// ConnectivityMeta describes a breaker transition.
type ConnectivityMeta struct {
	Online bool   `json:"online"`
	Tier   string `json:"tier"`
}

// Key is the partitioning key of the event: the record key for item events,
// the event type otherwise.
func (e *Event) Key() string {
	if e.SyncItem != nil && e.SyncItem.RecordKey != "" {
		return e.SyncItem.RecordKey
	}
	return e.EventType
}

func newEvent(eventType string, source EventSource, now time.Time) *Event {
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source:        source,
	}
}

// NewSyncDroppedEvent builds a data loss event for a dropped item.
func NewSyncDroppedEvent(source EventSource, item SyncItemMeta, now time.Time) *Event {
	e := newEvent(EventTypeSyncDropped, source, now)
	e.SyncItem = &item
	return e
}

// NewSyncDrainedEvent builds a drain summary event.
func NewSyncDrainedEvent(source EventSource, drain DrainMeta, now time.Time) *Event {
	e := newEvent(EventTypeSyncDrained, source, now)
	e.Drain = &drain
	return e
}

// NewConnectivityEvent builds a connectivity transition event.
func NewConnectivityEvent(source EventSource, conn ConnectivityMeta, now time.Time) *Event {
	e := newEvent(EventTypeConnectivity, source, now)
	e.Connectivity = &conn
	return e
}
