package breaker_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/breaker"
)

var _ = Describe("Breaker", func() {
	var b *breaker.Breaker

	BeforeEach(func() {
		b = breaker.New()
	})

	It("starts closed", func() {
		Expect(b.IsOpen()).To(BeFalse())
		Expect(b.State()).To(Equal(breaker.Closed))
		Expect(b.OpenedAt().IsZero()).To(BeTrue())
	})

	It("opens on failure and closes on success", func() {
		Expect(b.RecordFailure()).To(BeTrue())
		Expect(b.IsOpen()).To(BeTrue())
		Expect(b.OpenedAt().IsZero()).To(BeFalse())

		Expect(b.RecordFailure()).To(BeFalse())
		Expect(b.Failures()).To(Equal(int64(2)))

		Expect(b.RecordSuccess()).To(BeTrue())
		Expect(b.IsOpen()).To(BeFalse())
		Expect(b.Failures()).To(BeZero())
		Expect(b.RecordSuccess()).To(BeFalse())
	})

	It("notifies listeners once per transition", func() {
		var (
			mu     sync.Mutex
			states []breaker.State
		)
		b.Subscribe(func(s breaker.State) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
		})

		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordSuccess()

		Expect(states).To(Equal([]breaker.State{breaker.Open, breaker.Closed}))
	})

	It("makes exactly one concurrent caller win the transition", func() {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0

		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if b.RecordFailure() {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Expect(wins).To(Equal(1))
		Expect(b.Failures()).To(Equal(int64(16)))
	})
})
