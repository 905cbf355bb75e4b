package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/strata/pkg/eventstream"
)

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.Event
	closed bool
}

// NewRecordingPublisher creates an empty RecordingPublisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(_ context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Events returns a copy of the events published so far.
func (p *RecordingPublisher) Events() []*eventstream.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.Event(nil), p.events...)
}

// EventTypes returns the type of every event published so far, in order.
func (p *RecordingPublisher) EventTypes() []string {
	events := p.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	return types
}

// Closed reports whether Close was called.
func (p *RecordingPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ eventstream.Publisher = (*RecordingPublisher)(nil)
