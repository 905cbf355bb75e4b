package tiered

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/strata/pkg/breaker"
	"github.com/papercomputeco/strata/pkg/storage"
	"github.com/papercomputeco/strata/pkg/syncqueue"
)

// ErrNoRemote is returned when an operation needs the remote tier but none is
// configured.
var ErrNoRemote = errors.New("no remote tier configured")

// Replayer applies sync queue items to the remote tier, dispatching on the
// payload variant. Transient failures open the breaker; successes close it.
type Replayer struct {
	remote  storage.RemoteTier
	breaker *breaker.Breaker
}

// NewReplayer creates a replayer. A nil remote fails every replay as
// transient so items stay queued.
func NewReplayer(remote storage.RemoteTier, b *breaker.Breaker) *Replayer {
	if b == nil {
		b = breaker.New()
	}
	return &Replayer{remote: remote, breaker: b}
}

// Replay implements syncqueue.Replayer.
func (r *Replayer) Replay(ctx context.Context, item syncqueue.Item) error {
	if r.remote == nil {
		return storage.NewError("remote", "replay", storage.ClassTransient, ErrNoRemote)
	}

	err := r.apply(ctx, item)
	switch {
	case err == nil:
		r.breaker.RecordSuccess()
	case storage.ClassOf(err) == storage.ClassTransient && ctx.Err() == nil:
		r.breaker.RecordFailure()
	}
	return err
}

func (r *Replayer) apply(ctx context.Context, item syncqueue.Item) error {
	switch p := item.Payload.(type) {
	case syncqueue.ConversationPayload:
		if item.Operation == syncqueue.OpDelete {
			return r.remote.Delete(ctx, p.ConversationID)
		}
		if p.Conversation == nil {
			return rejected(item, errors.New("conversation payload has no snapshot"))
		}
		return r.remote.Put(ctx, p.Conversation)

	case syncqueue.PendingQueryPayload:
		return r.remote.PutPendingQuery(ctx, p.Query)
	}
	return rejected(item, fmt.Errorf("%w: %T", syncqueue.ErrUnknownTarget, item.Payload))
}

func rejected(item syncqueue.Item, err error) error {
	return storage.NewError("remote", "replay "+item.ID, storage.ClassRejected, err)
}

var _ syncqueue.Replayer = (*Replayer)(nil)
