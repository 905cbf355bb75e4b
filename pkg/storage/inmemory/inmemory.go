// Package inmemory provides the fast cache tier: a bounded, TTL-expiring map
// of conversation copies.
package inmemory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage"
)

const (
	defaultTTL        = 5 * time.Minute
	defaultMaxEntries = 1024
)

// Cache implements storage.Tier over an LRU with a freshness TTL.
// It holds clones: callers never share a conversation with the cache.
type Cache struct {
	items *ttlcache.Cache[string, *memory.Conversation]

	ttl        time.Duration
	maxEntries int
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the freshness window (defaults to 5m).
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of cached conversations (defaults to 1024).
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// NewCache creates a new in-memory cache tier. Reads do not extend the TTL;
// only a Put does.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		ttl:        defaultTTL,
		maxEntries: defaultMaxEntries,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.items = ttlcache.New(
		ttlcache.WithTTL[string, *memory.Conversation](c.ttl),
		ttlcache.WithCapacity[string, *memory.Conversation](uint64(c.maxEntries)),
		ttlcache.WithDisableTouchOnHit[string, *memory.Conversation](),
	)
	return c
}

func (c *Cache) Name() string { return "cache" }

func (c *Cache) Reliability() storage.Reliability { return storage.Volatile }

// Get returns a fresh copy. Expired entries are reported missing.
func (c *Cache) Get(_ context.Context, conversationID string) (*memory.Conversation, bool, error) {
	it := c.items.Get(conversationID)
	if it == nil || it.IsExpired() {
		return nil, false, nil
	}
	return it.Value().Clone(), true, nil
}

// Put stores a copy and restarts its TTL, evicting the least recently used
// entry when full.
func (c *Cache) Put(_ context.Context, conv *memory.Conversation) error {
	if conv == nil || conv.ConversationID == "" {
		return storage.NewError(c.Name(), "put", storage.ClassRejected, memory.ErrEmptyConversationID)
	}

	c.items.Set(conv.ConversationID, conv.Clone(), ttlcache.DefaultTTL)
	return nil
}

// Delete removes a conversation.
func (c *Cache) Delete(_ context.Context, conversationID string) error {
	c.items.Delete(conversationID)
	return nil
}

// Sweep evicts every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	before := c.items.Len()
	c.items.DeleteExpired()
	return before - c.items.Len()
}

// Len is the number of cached conversations, expired or not.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Close drops every entry.
func (c *Cache) Close() error {
	c.items.DeleteAll()
	return nil
}

var _ storage.Tier = (*Cache)(nil)
