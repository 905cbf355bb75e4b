// Package breaker provides the connectivity circuit breaker guarding the
// remote tier.
//
// The breaker is open while the remote is believed unreachable. Any remote
// failure opens it; only an explicit success (a reconnect ping or a
// successful remote call) closes it. Listeners are notified on every open to
// closed transition, which is how a reconnect triggers a sync queue drain.
package breaker

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the breaker position.
type State string

const (
	Closed State = "closed"
	Open   State = "open"
)

// Listener is called with the new state after a transition. Listeners run
// synchronously on the goroutine that caused the transition and must not block.
type Listener func(State)

// Breaker is a two state connectivity flag safe for concurrent use.
type Breaker struct {
	open     atomic.Bool
	openedAt atomic.Int64
	failures atomic.Int64

	// mu guards listeners
	mu        sync.Mutex
	listeners []Listener

	now func() time.Time
}

// New returns a closed breaker.
func New() *Breaker {
	return &Breaker{now: time.Now}
}

// IsOpen reports whether the remote is considered unreachable.
func (b *Breaker) IsOpen() bool {
	return b.open.Load()
}

// State returns the current position.
func (b *Breaker) State() State {
	if b.IsOpen() {
		return Open
	}
	return Closed
}

// RecordFailure opens the breaker. It reports whether this call caused the
// transition.
func (b *Breaker) RecordFailure() bool {
	b.failures.Add(1)
	if !b.open.CompareAndSwap(false, true) {
		return false
	}
	b.openedAt.Store(b.now().UnixNano())
	b.notify(Open)
	return true
}

// RecordSuccess closes the breaker. It reports whether this call caused the
// transition.
func (b *Breaker) RecordSuccess() bool {
	if !b.open.CompareAndSwap(true, false) {
		return false
	}
	b.failures.Store(0)
	b.notify(Closed)
	return true
}

// OpenedAt is when the breaker last opened, or the zero time if it is closed.
func (b *Breaker) OpenedAt() time.Time {
	if !b.IsOpen() {
		return time.Time{}
	}
	return time.Unix(0, b.openedAt.Load())
}

// Failures counts failures recorded since the breaker last closed.
func (b *Breaker) Failures() int64 {
	return b.failures.Load()
}

// Subscribe registers l for state transitions.
func (b *Breaker) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Breaker) notify(s State) {
	b.mu.Lock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		l(s)
	}
}
