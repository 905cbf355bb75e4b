package testutils

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage"
)

// ErrDiskFull is the cause carried by FailingTier's write failures.
var ErrDiskFull = errors.New("disk full")

// FailingTier wraps a tier and fails its writes while FailWrites is set.
type FailingTier struct {
	storage.Tier

	FailWrites atomic.Bool
}

// NewFailingTier wraps t.
func NewFailingTier(t storage.Tier) *FailingTier {
	return &FailingTier{Tier: t}
}

func (f *FailingTier) Put(ctx context.Context, conv *memory.Conversation) error {
	if f.FailWrites.Load() {
		return storage.NewError(f.Name(), "put", storage.ClassLocal, ErrDiskFull)
	}
	return f.Tier.Put(ctx, conv)
}

func (f *FailingTier) Delete(ctx context.Context, id string) error {
	if f.FailWrites.Load() {
		return storage.NewError(f.Name(), "delete", storage.ClassLocal, ErrDiskFull)
	}
	return f.Tier.Delete(ctx, id)
}
