// Package tiered composes the cache, local durable and remote tiers into one
// logical conversation store.
//
// Reads go cache first. On a miss the local copy is compared with the remote
// one (only while the breaker is closed and no write for the conversation is
// still queued) and the newer copy by UpdatedAt is served. A remote copy never
// replaces a newer local one. Writes always go to the cache and the local
// store; the remote write is attempted synchronously while online and queued
// for replay otherwise. Every tier failure is classified here so callers only
// ever see a WriteOutcome or a storage.Error.
package tiered

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/breaker"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage"
	"github.com/papercomputeco/strata/pkg/syncqueue"
)

// WriteOutcome tells the caller how far a write got.
type WriteOutcome string

const (
	// OutcomeSynced means the remote tier accepted the write.
	OutcomeSynced WriteOutcome = "synced"

	// OutcomeQueued means the write is durable locally and queued for the
	// remote tier.
	OutcomeQueued WriteOutcome = "queued"

	// OutcomeLocalOnly means the write is durable locally and there is no
	// remote tier to sync it to, or the queue could not take it.
	OutcomeLocalOnly WriteOutcome = "local-only"
)

// Enqueuer accepts remote writes for later replay.
type Enqueuer interface {
	Enqueue(ctx context.Context, item syncqueue.Item) error

	// HasPending reports whether writes to the record key are still queued.
	HasPending(ctx context.Context, key string) (bool, error)
}

// Config is the configuration for a Store.
type Config struct {
	// Cache is the volatile fast tier.
	Cache storage.Tier

	// Local is the durable local tier.
	Local storage.Tier

	// Remote is the authoritative tier. Nil runs the store local-only.
	Remote storage.RemoteTier

	// Queue receives remote writes that could not be applied.
	Queue Enqueuer

	// Breaker is the shared online flag (defaults to a new closed breaker).
	Breaker *breaker.Breaker

	// Logger is the provided zap logger
	Logger *zap.Logger

	// Now is the store clock (defaults to time.Now).
	Now func() time.Time
}

// Store is the tiered conversation store.
type Store struct {
	cache    storage.Tier
	local    storage.Tier
	remote   storage.RemoteTier
	queue    Enqueuer
	breaker  *breaker.Breaker
	replayer *Replayer
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a tiered store.
func New(c Config) (*Store, error) {
	if c.Cache == nil || c.Local == nil {
		return nil, errors.New("tiered store requires a cache and a local tier")
	}
	if c.Remote != nil && c.Queue == nil {
		return nil, errors.New("tiered store with a remote tier requires a sync queue")
	}
	if c.Breaker == nil {
		c.Breaker = breaker.New()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Store{
		cache:    c.Cache,
		local:    c.Local,
		remote:   c.Remote,
		queue:    c.Queue,
		breaker:  c.Breaker,
		replayer: NewReplayer(c.Remote, c.Breaker),
		logger:   c.Logger,
		now:      c.Now,
	}, nil
}

// IsOnline reports whether remote I/O is currently attempted.
func (s *Store) IsOnline() bool {
	return s.remote != nil && !s.breaker.IsOpen()
}

// HasRemote reports whether a remote tier is configured.
func (s *Store) HasRemote() bool {
	return s.remote != nil
}

// Breaker returns the shared online flag.
func (s *Store) Breaker() *breaker.Breaker {
	return s.breaker
}

// Get reads a conversation through the tiers. A miss everywhere is
// found == false.
func (s *Store) Get(ctx context.Context, conversationID string) (*memory.Conversation, bool, error) {
	if conv, found, err := s.cache.Get(ctx, conversationID); err == nil && found {
		return conv, true, nil
	}

	local, localFound, localErr := s.local.Get(ctx, conversationID)
	if localErr != nil {
		s.logger.Warn("local read failed", zap.String("conversation_id", conversationID), zap.Error(localErr))
	}

	if s.IsOnline() && !s.pending(ctx, conversationID) {
		remote, found, err := s.remote.Get(ctx, conversationID)
		switch {
		case err != nil:
			s.remoteFailed("get", conversationID, err)
		case found && (!localFound || remote.UpdatedAt.After(local.UpdatedAt)):
			s.fill(ctx, remote, true)
			return remote, true, nil
		}
	}

	if localErr != nil {
		return nil, false, classifyLocal(s.local.Name(), "get", localErr)
	}
	if !localFound {
		return nil, false, nil
	}

	s.fill(ctx, local, false)
	return local, true, nil
}

// pending reports whether queued writes for the conversation have not reached
// the remote yet. The local copy is then at least as new as the remote one.
func (s *Store) pending(ctx context.Context, conversationID string) bool {
	if s.queue == nil {
		return false
	}
	has, err := s.queue.HasPending(ctx, conversationID)
	if err != nil {
		s.logger.Warn("checking sync queue failed, reading local copy",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return true
	}
	return has
}

// fill repopulates the faster tiers after a slower tier served a read.
func (s *Store) fill(ctx context.Context, conv *memory.Conversation, local bool) {
	if err := s.cache.Put(ctx, conv); err != nil {
		s.logger.Warn("cache fill failed", zap.String("conversation_id", conv.ConversationID), zap.Error(err))
	}
	if !local {
		return
	}
	if err := s.local.Put(ctx, conv); err != nil {
		s.logger.Warn("local fill failed", zap.String("conversation_id", conv.ConversationID), zap.Error(err))
	}
}

// Put writes conv to every tier. op is recorded on the sync item if the
// remote write has to be queued.
func (s *Store) Put(ctx context.Context, conv *memory.Conversation, op syncqueue.Operation) (WriteOutcome, error) {
	if conv == nil || conv.ConversationID == "" {
		return "", storage.NewError("tiered", "put", storage.ClassRejected, memory.ErrEmptyConversationID)
	}

	if err := s.cache.Put(ctx, conv); err != nil {
		s.logger.Warn("cache write failed", zap.String("conversation_id", conv.ConversationID), zap.Error(err))
	}
	localErr := s.local.Put(ctx, conv)

	return s.toRemote(ctx, conv.ConversationID, localErr,
		func(ctx context.Context) error { return s.remote.Put(ctx, conv) },
		func() syncqueue.Item { return syncqueue.NewConversationItem(op, conv, s.now()) },
	)
}

// Delete removes a conversation from every tier.
func (s *Store) Delete(ctx context.Context, conversationID string) (WriteOutcome, error) {
	if err := s.cache.Delete(ctx, conversationID); err != nil {
		s.logger.Warn("cache delete failed", zap.String("conversation_id", conversationID), zap.Error(err))
	}
	localErr := s.local.Delete(ctx, conversationID)

	return s.toRemote(ctx, conversationID, localErr,
		func(ctx context.Context) error { return s.remote.Delete(ctx, conversationID) },
		func() syncqueue.Item {
			return syncqueue.NewConversationItem(syncqueue.OpDelete, &memory.Conversation{ConversationID: conversationID}, s.now())
		},
	)
}

// EnqueuePendingQuery sends a deferred query to the remote tier, queueing it
// while offline.
func (s *Store) EnqueuePendingQuery(ctx context.Context, q memory.PendingQuery) (WriteOutcome, error) {
	if s.remote == nil {
		return OutcomeLocalOnly, nil
	}
	return s.toRemote(ctx, q.ConversationID, nil,
		func(ctx context.Context) error { return s.remote.PutPendingQuery(ctx, q) },
		func() syncqueue.Item { return syncqueue.NewPendingQueryItem(q, s.now()) },
	)
}

// toRemote applies the remote half of a write after the local half produced
// localErr.
func (s *Store) toRemote(
	ctx context.Context,
	key string,
	localErr error,
	write func(context.Context) error,
	item func() syncqueue.Item,
) (WriteOutcome, error) {
	if s.remote == nil {
		if localErr != nil {
			return "", classifyLocal(s.local.Name(), "put", localErr)
		}
		return OutcomeLocalOnly, nil
	}

	if s.IsOnline() {
		err := write(ctx)
		if err == nil {
			s.breaker.RecordSuccess()
			if localErr != nil {
				s.logger.Error("local write failed, remote copy is current",
					zap.String("conversation_id", key),
					zap.Error(localErr),
				)
			}
			return OutcomeSynced, nil
		}

		if storage.ClassOf(err) == storage.ClassRejected {
			return "", err
		}
		s.remoteFailed("put", key, err)
	}

	if localErr != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrUnavailable, classifyLocal(s.local.Name(), "put", localErr))
	}

	it := item()
	if err := s.queue.Enqueue(context.WithoutCancel(ctx), it); err != nil {
		s.logger.Error("failed to queue remote write",
			zap.String("conversation_id", key),
			zap.Error(err),
		)
		return OutcomeLocalOnly, nil
	}
	return OutcomeQueued, nil
}

// remoteFailed opens the breaker for a transient failure. Rejections do not
// say anything about connectivity.
func (s *Store) remoteFailed(op, key string, err error) {
	if storage.ClassOf(err) != storage.ClassTransient {
		s.logger.Warn("remote tier refused operation",
			zap.String("op", op),
			zap.String("conversation_id", key),
			zap.Error(err),
		)
		return
	}
	if s.breaker.RecordFailure() {
		s.logger.Warn("remote tier unreachable, switching to offline mode",
			zap.String("op", op),
			zap.String("conversation_id", key),
			zap.Error(err),
		)
	}
}

// Reconnect pings the remote tier and closes the breaker on success.
func (s *Store) Reconnect(ctx context.Context) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	if err := s.remote.Ping(ctx); err != nil {
		s.breaker.RecordFailure()
		return err
	}
	if s.breaker.RecordSuccess() {
		s.logger.Info("remote tier reachable, back online")
	}
	return nil
}

// Replay applies a sync queue item to the remote tier.
func (s *Store) Replay(ctx context.Context, item syncqueue.Item) error {
	return s.replayer.Replay(ctx, item)
}

// Close closes every tier.
func (s *Store) Close() error {
	errs := []error{s.cache.Close(), s.local.Close()}
	if s.remote != nil {
		errs = append(errs, s.remote.Close())
	}
	return errors.Join(errs...)
}

func classifyLocal(tier, op string, err error) error {
	var se *storage.Error
	if errors.As(err, &se) {
		return err
	}
	return storage.NewError(tier, op, storage.ClassLocal, err)
}

var _ syncqueue.Replayer = (*Store)(nil)
