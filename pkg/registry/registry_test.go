package registry_test

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/eventstream"
	"github.com/papercomputeco/strata/pkg/registry"
	"github.com/papercomputeco/strata/pkg/service"
	"github.com/papercomputeco/strata/pkg/storage/tiered"
	testutils "github.com/papercomputeco/strata/pkg/utils/test"
)

const convID = "conv-1"

var _ = Describe("Registry", func() {
	var (
		ctx    context.Context
		cfg    *config.Config
		remote *testutils.FakeRemote
		pub    *testutils.RecordingPublisher
		reg    *registry.Registry
	)

	build := func() *registry.Registry {
		r, err := registry.New(ctx, cfg, registry.Options{Remote: remote, Publisher: pub})
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	remoteMessages := func() int {
		conv, found := remote.Conversation(convID)
		if !found {
			return -1
		}
		return conv.TotalMessages
	}

	appendOne := func(r *registry.Registry) tiered.WriteOutcome {
		res, err := r.Service.AppendMessage(ctx, convID, service.MessageInput{Content: "checking in on the rollout"})
		Expect(err).NotTo(HaveOccurred())
		return res.Outcome
	}

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		cfg.Storage.SQLitePath = filepath.Join(GinkgoT().TempDir(), "strata.sqlite")
		remote = testutils.NewFakeRemote()
		pub = testutils.NewRecordingPublisher()
	})

	AfterEach(func() {
		if reg != nil {
			Expect(reg.Close()).To(Succeed())
			reg = nil
		}
	})

	It("registers the reconnect and cache sweep jobs", func() {
		reg = build()
		Expect(reg.Scheduler.Jobs()).To(ConsistOf(registry.JobReconnect, registry.JobSweep))
		Expect(reg.Scheduler.RunNow(registry.JobSweep)).To(Succeed())
	})

	It("runs local only without a remote", func() {
		reg, _ = registry.New(ctx, cfg, registry.Options{Publisher: pub})
		Expect(reg).NotTo(BeNil())
		Expect(reg.Scheduler.Jobs()).To(ConsistOf(registry.JobSweep))

		_, err := reg.Service.Initialize(ctx, convID, "user-1", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(appendOne(reg)).To(Equal(tiered.OutcomeLocalOnly))

		status, err := reg.Status(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.HasRemote).To(BeFalse())
		Expect(status.Online).To(BeFalse())
		Expect(status.Stored).To(Equal(1))
		Expect(status.Queued).To(BeZero())
	})

	It("rejects an unknown events provider", func() {
		cfg.Events.Provider = "carrier-pigeon"
		_, err := registry.New(ctx, cfg, registry.Options{Remote: remote})
		Expect(err).To(MatchError(ContainSubstring("unknown events provider")))
	})

	It("queues while offline and drains once the reconnect job succeeds", func() {
		reg = build()
		_, err := reg.Service.Initialize(ctx, convID, "user-1", nil)
		Expect(err).NotTo(HaveOccurred())

		remote.SetOffline(true)
		Expect(appendOne(reg)).To(Equal(tiered.OutcomeQueued))
		Expect(appendOne(reg)).To(Equal(tiered.OutcomeQueued))

		status, err := reg.Status(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Online).To(BeFalse())
		Expect(status.Breaker).To(Equal("open"))
		Expect(status.OfflineSince).NotTo(BeNil())
		Expect(status.Queued).To(Equal(2))

		// Still offline: the reconnect fails and nothing moves.
		Expect(reg.Scheduler.RunNow(registry.JobReconnect)).NotTo(Succeed())
		Expect(remoteMessages()).To(Equal(0))

		remote.SetOffline(false)
		Expect(reg.Scheduler.RunNow(registry.JobReconnect)).To(Succeed())

		Eventually(remoteMessages).Should(Equal(2))
		Eventually(func() int {
			s, err := reg.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			return s.Queued
		}).Should(BeZero())
		Expect(reg.Store.IsOnline()).To(BeTrue())

		Eventually(pub.EventTypes).Should(ContainElements(
			eventstream.EventTypeConnectivity,
			eventstream.EventTypeSyncDrained,
		))
	})

	It("publishes both connectivity transitions", func() {
		cfg.Events.Workers = 1
		reg = build()
		_, err := reg.Service.Initialize(ctx, convID, "user-1", nil)
		Expect(err).NotTo(HaveOccurred())

		remote.SetOffline(true)
		appendOne(reg)
		remote.SetOffline(false)
		Expect(reg.Scheduler.RunNow(registry.JobReconnect)).To(Succeed())

		Eventually(func() []bool {
			var seen []bool
			for _, e := range pub.Events() {
				if e.Connectivity != nil {
					seen = append(seen, e.Connectivity.Online)
				}
			}
			return seen
		}).Should(Equal([]bool{false, true}))
	})

	It("replays writes queued by an earlier run on start", func() {
		remote.SetOffline(true)
		first := build()
		_, err := first.Service.Initialize(ctx, convID, "user-1", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(appendOne(first)).To(Equal(tiered.OutcomeQueued))
		Expect(first.Close()).To(Succeed())
		Expect(remoteMessages()).To(Equal(-1))

		remote.SetOffline(false)
		pub = testutils.NewRecordingPublisher()
		reg = build()
		reg.Start(ctx)

		Eventually(remoteMessages).Should(Equal(1))
	})

	It("keeps the queue in memory when configured", func() {
		cfg.Sync.Queue = config.QueueMemory
		remote.SetOffline(true)
		reg = build()

		_, err := reg.Service.Initialize(ctx, convID, "user-1", nil)
		Expect(err).NotTo(HaveOccurred())

		n, err := reg.Queue.Len(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("drains on demand", func() {
		reg = build()
		_, err := reg.Service.Initialize(ctx, convID, "user-1", nil)
		Expect(err).NotTo(HaveOccurred())

		result, err := reg.Drain(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Synced).To(BeZero())
		Expect(result.Remaining).To(BeZero())
	})

	It("cancels an armed sync retry on close", func() {
		cfg.Sync.Backoff = config.Duration(20 * time.Millisecond)
		r := build()
		_, err := r.Service.Initialize(ctx, convID, "user-1", nil)
		Expect(err).NotTo(HaveOccurred())

		remote.SetOffline(true)
		Expect(appendOne(r)).To(Equal(tiered.OutcomeQueued))
		result, err := r.Drain(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failed).To(Equal(1))
		Expect(r.Queue.RetryPending()).To(BeTrue())

		Expect(r.Close()).To(Succeed())
		Expect(r.Queue.RetryPending()).To(BeFalse())

		remote.SetOffline(false)
		Consistently(remoteMessages, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(0))
	})

	It("starts no drain after close", func() {
		r := build()
		_, err := r.Service.Initialize(ctx, convID, "user-1", nil)
		Expect(err).NotTo(HaveOccurred())
		remote.SetOffline(true)
		Expect(appendOne(r)).To(Equal(tiered.OutcomeQueued))
		Expect(r.Close()).To(Succeed())

		remote.SetOffline(false)
		Expect(r.Store.Reconnect(ctx)).To(Succeed())
		Expect(r.Store.IsOnline()).To(BeTrue())
		Consistently(remoteMessages, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(0))
	})

	It("closes the event backend once", func() {
		r := build()
		Expect(r.Close()).To(Succeed())
		Expect(pub.Closed()).To(BeTrue())
		Expect(r.Close()).To(Succeed())
	})
})
