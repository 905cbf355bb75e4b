package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/scheduler"
)

var _ = Describe("Scheduler", func() {
	var s *scheduler.Scheduler

	BeforeEach(func() {
		s = scheduler.New(nil)
	})

	AfterEach(func() {
		s.Stop(time.Second)
	})

	It("rejects invalid and duplicate jobs", func() {
		noop := func(context.Context) error { return nil }

		Expect(s.Add(scheduler.Job{Name: "", Every: time.Second, Run: noop})).NotTo(Succeed())
		Expect(s.Add(scheduler.Job{Name: "reconnect", Every: 0, Run: noop})).NotTo(Succeed())
		Expect(s.Add(scheduler.Job{Name: "reconnect", Every: time.Second, Run: noop})).To(Succeed())
		Expect(s.Add(scheduler.Job{Name: "reconnect", Every: time.Second, Run: noop})).NotTo(Succeed())
		Expect(s.Jobs()).To(ConsistOf("reconnect"))
	})

	It("runs a job on demand and returns its error", func() {
		boom := errors.New("boom")
		Expect(s.Add(scheduler.Job{
			Name:  "sweep",
			Every: time.Hour,
			Run:   func(context.Context) error { return boom },
		})).To(Succeed())

		Expect(s.RunNow("sweep")).To(MatchError(boom))
		Expect(s.RunNow("missing")).To(MatchError(scheduler.ErrUnknownJob))
	})

	It("runs jobs on their interval once started", func() {
		var runs atomic.Int32
		Expect(s.Add(scheduler.Job{
			Name:  "tick",
			Every: time.Second,
			Run: func(context.Context) error {
				runs.Add(1)
				return nil
			},
		})).To(Succeed())

		s.Start()
		Eventually(runs.Load, 3*time.Second, 50*time.Millisecond).Should(BeNumerically(">=", 1))
	})

	It("cancels the job context on stop", func() {
		started := make(chan struct{})
		var cancelled atomic.Bool
		Expect(s.Add(scheduler.Job{
			Name:  "slow",
			Every: time.Hour,
			Run: func(ctx context.Context) error {
				close(started)
				<-ctx.Done()
				cancelled.Store(true)
				return ctx.Err()
			},
		})).To(Succeed())

		go func() { _ = s.RunNow("slow") }()
		Eventually(started).Should(BeClosed())

		s.Stop(time.Second)
		Eventually(cancelled.Load).Should(BeTrue())
	})
})
