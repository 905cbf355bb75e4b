package async_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/eventstream"
	"github.com/papercomputeco/strata/pkg/eventstream/async"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.Event
	block  chan struct{}
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, e *eventstream.Event) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func drained() *eventstream.Event {
	return eventstream.NewSyncDrainedEvent(eventstream.EventSource{Service: "strata"}, eventstream.DrainMeta{}, time.Now())
}

var _ = Describe("Pool", func() {
	var (
		backend *recordingPublisher
		ctx     context.Context
	)

	BeforeEach(func() {
		backend = &recordingPublisher{}
		ctx = context.Background()
	})

	It("requires a publisher", func() {
		_, err := async.NewPool(&async.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("delivers queued events and closes the backend", func() {
		pool, err := async.NewPool(&async.Config{Publisher: backend, Logger: zap.NewNop()})
		Expect(err).NotTo(HaveOccurred())

		for range 5 {
			Expect(pool.Publish(ctx, drained())).To(Succeed())
		}
		Expect(pool.Close()).To(Succeed())

		Expect(backend.count()).To(Equal(5))
		Expect(backend.closed).To(BeTrue())
	})

	It("drops events when the queue is full", func() {
		backend.block = make(chan struct{})
		pool, err := async.NewPool(&async.Config{Publisher: backend, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(pool.Publish(ctx, drained())).To(Succeed())
		Eventually(func() error { return pool.Publish(ctx, drained()) }).Should(Succeed())
		Expect(pool.Publish(ctx, drained())).To(MatchError(async.ErrQueueFull))

		close(backend.block)
		Expect(pool.Close()).To(Succeed())
		Expect(backend.count()).To(Equal(2))
	})

	It("rejects nil events and publishing after close", func() {
		pool, err := async.NewPool(&async.Config{Publisher: backend})
		Expect(err).NotTo(HaveOccurred())

		Expect(pool.Publish(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(pool.Close()).To(Succeed())
		Expect(pool.Publish(ctx, drained())).To(HaveOccurred())
		Expect(pool.Close()).To(Succeed())
	})
})
