// Package syncqueue is the durable FIFO of remote writes that could not be
// applied when they happened.
//
// Items are replayed oldest first. A successful replay removes the item; a
// rejected one is removed and reported as permanent; a transient failure
// bumps the attempt count and ends the pass, so nothing queued behind it for
// the same record can overtake it. Past the retry ceiling an item is dropped
// and published as a data loss event. A pass that ends on a failure schedules
// a single retry after the backoff window.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/eventstream"
	"github.com/papercomputeco/strata/pkg/eventstream/nop"
	"github.com/papercomputeco/strata/pkg/storage"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 30 * time.Second
)

// Replayer applies an item to the remote store. Its errors are classified
// with storage.ClassOf.
type Replayer interface {
	Replay(ctx context.Context, item Item) error
}

// ReplayerFunc adapts a function into a Replayer.
type ReplayerFunc func(ctx context.Context, item Item) error

// Replay calls f(ctx, item).
func (f ReplayerFunc) Replay(ctx context.Context, item Item) error {
	return f(ctx, item)
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	// Synced is the number of items replayed and removed.
	Synced int `json:"synced"`

	// Failed is the number of replays that failed during the pass.
	Failed int `json:"failed"`

	// Dropped is the number of items removed without being applied.
	Dropped int `json:"dropped"`

	// Remaining is the queue length after the pass.
	Remaining int `json:"remaining"`
}

// Config is the configuration for a Queue.
type Config struct {
	// Store persists items (defaults to an in-memory store).
	Store Store

	// Replayer applies items to the remote store.
	Replayer Replayer

	// MaxAttempts is the retry ceiling (defaults to 5). An item whose attempt
	// count exceeds it is dropped.
	MaxAttempts int

	// Backoff is the delay before retrying after a failed pass (defaults to 30s).
	Backoff time.Duration

	// Publisher receives drop and drain events (defaults to a no-op).
	Publisher eventstream.Publisher

	// Source identifies this process on published events.
	Source eventstream.EventSource

	// Logger is the provided zap logger
	Logger *zap.Logger

	// Now is the queue clock (defaults to time.Now).
	Now func() time.Time
}

// Queue replays pending remote writes.
type Queue struct {
	config   Config
	store    Store
	logger   *zap.Logger
	draining atomic.Bool

	// retryMu guards retry and closed
	retryMu sync.Mutex
	retry   *time.Timer
	closed  bool

	// retries tracks armed and running delayed drains; retryCtx is cancelled
	// by Close.
	retries     sync.WaitGroup
	retryCtx    context.Context
	cancelRetry context.CancelFunc
}

// New creates a queue.
func New(c Config) (*Queue, error) {
	if c.Replayer == nil {
		return nil, errors.New("sync queue requires a replayer")
	}
	if c.Store == nil {
		c.Store = NewMemoryStore()
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	retryCtx, cancel := context.WithCancel(context.Background())
	return &Queue{
		config:      c,
		store:       c.Store,
		logger:      c.Logger,
		retryCtx:    retryCtx,
		cancelRetry: cancel,
	}, nil
}

// Enqueue appends item at the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, item Item) error {
	if item.Payload == nil {
		return errors.New("sync item has no payload")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = q.config.Now()
	}

	if err := q.store.Append(ctx, item); err != nil {
		return fmt.Errorf("enqueueing sync item: %w", err)
	}

	q.logger.Debug("sync item queued",
		zap.String("item_id", item.ID),
		zap.String("operation", string(item.Operation)),
		zap.String("target_store", string(item.TargetStore())),
		zap.String("record_key", item.Key()),
	)
	return nil
}

// Len is the number of queued items.
func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.store.Len(ctx)
}

// HasPending reports whether writes to the record key are still queued.
func (q *Queue) HasPending(ctx context.Context, key string) (bool, error) {
	return q.store.HasKey(ctx, key)
}

// Items returns a snapshot of the queue, oldest first.
func (q *Queue) Items(ctx context.Context) ([]Item, error) {
	return q.store.List(ctx)
}

// Drain replays queued items in FIFO order. A Drain that starts while another
// is running returns an empty result immediately. Cancelling ctx stops the
// pass and leaves unreplayed items queued untouched.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	if !q.draining.CompareAndSwap(false, true) {
		q.logger.Debug("drain already in progress")
		return DrainResult{}, nil
	}
	defer q.draining.Store(false)

	items, err := q.store.List(ctx)
	if err != nil {
		return DrainResult{}, fmt.Errorf("listing sync queue: %w", err)
	}

	var result DrainResult
	stopped := false

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		replayErr := q.config.Replayer.Replay(ctx, item)
		if replayErr == nil {
			if err := q.store.Remove(ctx, item.ID); err != nil {
				return result, fmt.Errorf("removing replayed item: %w", err)
			}
			result.Synced++
			continue
		}

		// A cancelled pass is not the item's fault.
		if ctx.Err() != nil {
			break
		}

		result.Failed++

		if storage.ClassOf(replayErr) == storage.ClassRejected {
			if err := q.drop(ctx, item, replayErr, eventstream.ReasonRejected); err != nil {
				return result, err
			}
			result.Dropped++
			continue
		}

		item.Attempts++
		item.LastAttempt = q.config.Now()
		item.LastError = replayErr.Error()

		if item.Attempts > q.config.MaxAttempts {
			if err := q.drop(ctx, item, replayErr, eventstream.ReasonRetryCeiling); err != nil {
				return result, err
			}
			result.Dropped++
		} else if err := q.store.Update(ctx, item); err != nil {
			return result, fmt.Errorf("updating failed item: %w", err)
		}

		q.logger.Warn("sync replay failed, pass stopped",
			zap.String("item_id", item.ID),
			zap.String("record_key", item.Key()),
			zap.Int("attempts", item.Attempts),
			zap.Error(replayErr),
		)
		stopped = true
		break
	}

	remaining, err := q.store.Len(context.WithoutCancel(ctx))
	if err != nil {
		return result, fmt.Errorf("counting sync queue: %w", err)
	}
	result.Remaining = remaining

	if stopped && remaining > 0 {
		q.scheduleRetry()
	}

	if result.Synced > 0 || result.Failed > 0 {
		q.logger.Info("sync queue drained",
			zap.Int("synced", result.Synced),
			zap.Int("failed", result.Failed),
			zap.Int("dropped", result.Dropped),
			zap.Int("remaining", result.Remaining),
		)
		q.publish(ctx, eventstream.NewSyncDrainedEvent(q.config.Source, eventstream.DrainMeta{
			Synced:    result.Synced,
			Failed:    result.Failed,
			Dropped:   result.Dropped,
			Remaining: result.Remaining,
		}, q.config.Now()))
	}

	return result, nil
}

// drop removes item without applying it. The loss is logged and published.
func (q *Queue) drop(ctx context.Context, item Item, cause error, reason string) error {
	if err := q.store.Remove(ctx, item.ID); err != nil {
		return fmt.Errorf("removing dropped item: %w", err)
	}

	q.logger.Error("sync item dropped, remote update lost",
		zap.String("item_id", item.ID),
		zap.String("operation", string(item.Operation)),
		zap.String("target_store", string(item.TargetStore())),
		zap.String("record_key", item.Key()),
		zap.Int("attempts", item.Attempts),
		zap.String("reason", reason),
		zap.Error(cause),
	)

	q.publish(ctx, eventstream.NewSyncDroppedEvent(q.config.Source, eventstream.SyncItemMeta{
		ItemID:      item.ID,
		Operation:   string(item.Operation),
		TargetStore: string(item.TargetStore()),
		RecordKey:   item.Key(),
		Attempts:    item.Attempts,
		LastError:   cause.Error(),
		Reason:      reason,
		CreatedAt:   item.CreatedAt,
	}, q.config.Now()))
	return nil
}

func (q *Queue) publish(ctx context.Context, event *eventstream.Event) {
	if err := q.config.Publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		q.logger.Warn("failed to publish sync event",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}

// scheduleRetry arms a single delayed drain. A retry already pending is kept.
func (q *Queue) scheduleRetry() {
	q.retryMu.Lock()
	defer q.retryMu.Unlock()

	if q.closed || q.retry != nil {
		return
	}

	q.logger.Debug("sync retry scheduled", zap.Duration("backoff", q.config.Backoff))
	q.retries.Add(1)
	q.retry = time.AfterFunc(q.config.Backoff, func() {
		defer q.retries.Done()

		q.retryMu.Lock()
		q.retry = nil
		closed := q.closed
		q.retryMu.Unlock()
		if closed {
			return
		}

		if _, err := q.Drain(q.retryCtx); err != nil {
			q.logger.Error("scheduled sync drain failed", zap.Error(err))
		}
	})
}

// RetryPending reports whether a delayed drain is armed.
func (q *Queue) RetryPending() bool {
	q.retryMu.Lock()
	defer q.retryMu.Unlock()
	return q.retry != nil
}

// Close cancels any pending retry and waits for a delayed drain already
// running to stop. Queued items stay in the store. Close is idempotent.
func (q *Queue) Close() {
	q.retryMu.Lock()
	q.closed = true
	if q.retry != nil {
		if q.retry.Stop() {
			q.retries.Done()
		}
		q.retry = nil
	}
	q.retryMu.Unlock()

	q.cancelRetry()
	q.retries.Wait()
}
