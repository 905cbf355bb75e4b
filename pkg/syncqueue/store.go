package syncqueue

import (
	"context"
	"slices"
	"sync"
)

// Store persists queued items in FIFO order.
type Store interface {
	// Append adds item at the tail.
	Append(ctx context.Context, item Item) error

	// List returns every item, oldest first.
	List(ctx context.Context) ([]Item, error)

	// Update re-persists the retry bookkeeping of an existing item.
	Update(ctx context.Context, item Item) error

	// Remove deletes an item. Removing a missing item is not an error.
	Remove(ctx context.Context, id string) error

	// Len is the number of queued items.
	Len(ctx context.Context) (int, error)

	// HasKey reports whether any queued item mutates the record key.
	HasKey(ctx context.Context, key string) (bool, error)
}

// MemoryStore is a volatile Store for tests and cache-only deployments.
type MemoryStore struct {
	mu    sync.Mutex
	items []Item
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

func (s *MemoryStore) Update(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Attempts = item.Attempts
			s.items[i].LastAttempt = item.LastAttempt
			s.items[i].LastError = item.LastError
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(it Item) bool { return it.ID == id })
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}

func (s *MemoryStore) HasKey(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.items, func(it Item) bool { return it.Key() == key }), nil
}

var _ Store = (*MemoryStore)(nil)
