package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage"
	"github.com/papercomputeco/strata/pkg/storage/inmemory"
)

var _ = Describe("Cache", func() {
	var (
		cache *inmemory.Cache
		ctx   context.Context
		now   time.Time
	)

	const ttl = 100 * time.Millisecond

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		cache = inmemory.NewCache(
			inmemory.WithTTL(ttl),
			inmemory.WithMaxEntries(2),
		)
	})

	conv := func(id string) *memory.Conversation {
		return memory.NewConversation(id, "user-1", map[string]string{"role": "dev"}, now)
	}

	It("reports its reliability class", func() {
		Expect(cache.Reliability()).To(Equal(storage.Volatile))
	})

	It("returns not found without an error", func() {
		got, found, err := cache.Get(ctx, "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
		Expect(got).To(BeNil())
	})

	It("stores and returns copies", func() {
		c := conv("a")
		Expect(cache.Put(ctx, c)).To(Succeed())

		c.UserContext["role"] = "mutated"

		got, found, err := cache.Get(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(got.UserContext["role"]).To(Equal("dev"))

		got.TotalMessages = 99
		again, _, _ := cache.Get(ctx, "a")
		Expect(again.TotalMessages).To(BeZero())
	})

	It("expires entries after the TTL", func() {
		Expect(cache.Put(ctx, conv("a"))).To(Succeed())

		Eventually(func() bool {
			_, found, err := cache.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			return found
		}).WithTimeout(2 * time.Second).WithPolling(20 * time.Millisecond).Should(BeFalse())
	})

	It("does not extend the TTL on reads", func() {
		Expect(cache.Put(ctx, conv("a"))).To(Succeed())

		deadline := time.Now().Add(ttl)
		for time.Now().Before(deadline.Add(-20 * time.Millisecond)) {
			_, _, _ = cache.Get(ctx, "a")
			time.Sleep(10 * time.Millisecond)
		}
		time.Sleep(50 * time.Millisecond)

		_, found, _ := cache.Get(ctx, "a")
		Expect(found).To(BeFalse())
	})

	It("evicts the least recently used entry when full", func() {
		Expect(cache.Put(ctx, conv("a"))).To(Succeed())
		Expect(cache.Put(ctx, conv("b"))).To(Succeed())
		_, _, _ = cache.Get(ctx, "a")
		Expect(cache.Put(ctx, conv("c"))).To(Succeed())

		_, foundA, _ := cache.Get(ctx, "a")
		_, foundB, _ := cache.Get(ctx, "b")
		Expect(foundA).To(BeTrue())
		Expect(foundB).To(BeFalse())
	})

	It("sweeps expired entries", func() {
		Expect(cache.Put(ctx, conv("a"))).To(Succeed())
		time.Sleep(2 * ttl)
		Expect(cache.Put(ctx, conv("b"))).To(Succeed())

		Expect(cache.Sweep()).To(Equal(1))
		Expect(cache.Len()).To(Equal(1))

		_, found, _ := cache.Get(ctx, "b")
		Expect(found).To(BeTrue())
	})

	It("deletes entries", func() {
		Expect(cache.Put(ctx, conv("a"))).To(Succeed())
		Expect(cache.Delete(ctx, "a")).To(Succeed())
		Expect(cache.Delete(ctx, "a")).To(Succeed())
		Expect(cache.Len()).To(BeZero())
	})

	It("rejects conversations without an id", func() {
		err := cache.Put(ctx, conv(""))
		Expect(err).To(MatchError(storage.ErrRejected))
	})
})
