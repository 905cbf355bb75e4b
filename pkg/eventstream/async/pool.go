// Package async provides an asynchronous eventstream publisher backed by a
// worker pool.
//
// The pool decouples event delivery from the sync queue and the request path
// so a slow or unreachable broker never stalls a drain or an append.
package async

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 10 * time.Second
)

// ErrQueueFull is returned when an event is dropped because the queue is full.
var ErrQueueFull = errors.New("event queue full")

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher is the backend events are delivered to.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds each delivery (defaults to 10s).
	JobTimeout time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool delivers events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.Event
	wg     sync.WaitGroup
	logger *zap.Logger

	// mu guards closed so Publish never sends on a closed channel
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("async pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.Event, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Publish enqueues an event for delivery. It never blocks: when the queue is
// full the event is dropped and ErrQueueFull is returned.
func (p *Pool) Publish(_ context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("async pool closed")
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID),
		)
		return nil
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID),
		)
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued events to be delivered and
// closes the backend publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", zap.Uint("worker_id", id))

	for event := range p.queue {
		p.deliver(event)
	}

	p.logger.Debug("event worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) deliver(event *eventstream.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := p.config.Publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("event delivery failed",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("event delivered",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
	)
}

var _ eventstream.Publisher = (*Pool)(nil)
