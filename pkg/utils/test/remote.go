package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage"
)

// ErrOffline is the cause carried by FakeRemote's transient failures.
var ErrOffline = errors.New("fake remote offline")

// ErrRejectedWrite is the cause carried by FakeRemote's rejections.
var ErrRejectedWrite = errors.New("fake remote rejected write")

// FakeRemote is an in-memory storage.RemoteTier whose connectivity can be
// toggled. It applies the same last-write-wins guard as the real remote.
type FakeRemote struct {
	mu      sync.Mutex
	convs   map[string]*memory.Conversation
	queries map[string]memory.PendingQuery
	offline bool
	reject  bool

	// Calls counts every operation attempted, including failed ones.
	Calls int
}

// NewFakeRemote creates an online, empty fake remote tier.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		convs:   make(map[string]*memory.Conversation),
		queries: make(map[string]memory.PendingQuery),
	}
}

// SetOffline makes every operation fail as transient until reset.
func (f *FakeRemote) SetOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

// SetReject makes every write fail as rejected until reset.
func (f *FakeRemote) SetReject(reject bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reject = reject
}

// Conversation returns the stored copy of a conversation, ignoring
// connectivity.
func (f *FakeRemote) Conversation(id string) (*memory.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	return c.Clone(), ok
}

// PendingQueries returns every stored pending query, ignoring connectivity.
func (f *FakeRemote) PendingQueries() []memory.PendingQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]memory.PendingQuery, 0, len(f.queries))
	for _, q := range f.queries {
		out = append(out, q)
	}
	return out
}

func (f *FakeRemote) Name() string { return "fake-remote" }

func (f *FakeRemote) Reliability() storage.Reliability { return storage.DurableRemote }

func (f *FakeRemote) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check("ping", false)
}

func (f *FakeRemote) Get(_ context.Context, id string) (*memory.Conversation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("get", false); err != nil {
		return nil, false, err
	}
	c, ok := f.convs[id]
	return c.Clone(), ok, nil
}

func (f *FakeRemote) Put(_ context.Context, conv *memory.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("put", true); err != nil {
		return err
	}
	if cur, ok := f.convs[conv.ConversationID]; ok && cur.UpdatedAt.After(conv.UpdatedAt) {
		return nil
	}
	f.convs[conv.ConversationID] = conv.Clone()
	return nil
}

func (f *FakeRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("delete", true); err != nil {
		return err
	}
	delete(f.convs, id)
	return nil
}

func (f *FakeRemote) PutPendingQuery(_ context.Context, q memory.PendingQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("put_pending_query", true); err != nil {
		return err
	}
	if _, ok := f.queries[q.ID]; !ok {
		f.queries[q.ID] = q
	}
	return nil
}

func (f *FakeRemote) Close() error { return nil }

// check must be called with mu held.
func (f *FakeRemote) check(op string, write bool) error {
	f.Calls++
	if f.offline {
		return storage.NewError("fake-remote", op, storage.ClassTransient, ErrOffline)
	}
	if write && f.reject {
		return storage.NewError("fake-remote", op, storage.ClassRejected, ErrRejectedWrite)
	}
	return nil
}

var _ storage.RemoteTier = (*FakeRemote)(nil)
