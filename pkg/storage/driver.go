// Package storage defines the uniform contract over one physical storage tier
// and the error classes the tiered store uses to pick a failure policy.
package storage

import (
	"context"

	"github.com/papercomputeco/strata/pkg/memory"
)

// Reliability is the durability class of a tier.
type Reliability string

const (
	Volatile      Reliability = "volatile"
	DurableLocal  Reliability = "durable-local"
	DurableRemote Reliability = "durable-remote"
)

// Tier defines the interface for persisting and retrieving conversations in a
// single physical store. A missing conversation is reported as found == false,
// never as an error.
type Tier interface {
	// Name identifies the tier in logs and errors.
	Name() string

	// Reliability is the tier's durability class.
	Reliability() Reliability

	// Get retrieves a conversation by id.
	Get(ctx context.Context, conversationID string) (*memory.Conversation, bool, error)

	// Put upserts a conversation keyed by its id.
	Put(ctx context.Context, conv *memory.Conversation) error

	// Delete removes a conversation. Deleting a missing conversation is not
	// an error.
	Delete(ctx context.Context, conversationID string) error

	// Close releases any resources held by the tier.
	Close() error
}

// RemoteTier is the networked, authoritative tier. Its errors are classified
// as ClassTransient or ClassRejected.
type RemoteTier interface {
	Tier

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// PutPendingQuery stores a query deferred while offline. Replaying the same
	// query twice is a no-op.
	PutPendingQuery(ctx context.Context, q memory.PendingQuery) error
}
