package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage"
	"github.com/papercomputeco/strata/pkg/storage/sqlite"
)

func sampleConversation(id string, at time.Time) *memory.Conversation {
	conv := memory.NewConversation(id, "user-1", map[string]string{"experience_level": "expert"}, at)
	conv.ActiveMemory = append(conv.ActiveMemory, memory.Entry{
		ID:             "e-1",
		ConversationID: id,
		Role:           memory.RoleUser,
		Content:        "never deploy on fridays",
		Importance:     memory.ImportanceCritical,
		Tags:           []string{memory.TagRemembered},
		CreatedAt:      at,
	})
	conv.CriticalFacts = append(conv.CriticalFacts, conv.ActiveMemory[0])
	conv.CompressedMemory = append(conv.CompressedMemory, memory.CompressedBlock{
		ID:            "b-1",
		OriginalCount: 4,
		TimeRange:     memory.TimeRange{Start: at.Add(-time.Hour), End: at},
		Summary:       "4 messages",
		Importance:    memory.ImportanceMedium,
		CreatedAt:     at,
	})
	conv.TotalMessages = 5
	return conv
}

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
		at     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		at = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("creates a driver with file database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "strata.db")

			d, err := sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("survives a reopen", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "strata.db")

			d, err := sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Put(ctx, sampleConversation("conv-1", at))).To(Succeed())
			Expect(d.Close()).To(Succeed())

			d, err = sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			_, found, err := d.Get(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})
	})

	It("reports its reliability class", func() {
		Expect(driver.Reliability()).To(Equal(storage.DurableLocal))
	})

	Describe("Put and Get", func() {
		It("round trips a conversation", func() {
			conv := sampleConversation("conv-1", at)
			Expect(driver.Put(ctx, conv)).To(Succeed())

			got, found, err := driver.Get(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(got).To(Equal(conv))
		})

		It("returns not found without an error", func() {
			got, found, err := driver.Get(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(got).To(BeNil())
		})

		It("overwrites on a second put", func() {
			conv := sampleConversation("conv-1", at)
			Expect(driver.Put(ctx, conv)).To(Succeed())

			conv.TotalMessages = 6
			conv.UpdatedAt = at.Add(time.Minute)
			Expect(driver.Put(ctx, conv)).To(Succeed())

			got, _, err := driver.Get(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.TotalMessages).To(Equal(6))

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})

		It("rejects conversations without an id", func() {
			err := driver.Put(ctx, &memory.Conversation{})
			Expect(err).To(MatchError(storage.ErrRejected))
		})
	})

	Describe("Delete", func() {
		It("removes a conversation", func() {
			Expect(driver.Put(ctx, sampleConversation("conv-1", at))).To(Succeed())
			Expect(driver.Delete(ctx, "conv-1")).To(Succeed())

			_, found, err := driver.Get(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})

	It("classifies failures as local", func() {
		Expect(driver.Close()).To(Succeed())
		_, _, err := driver.Get(ctx, "conv-1")
		Expect(err).To(MatchError(storage.ErrLocal))
		driver = nil
	})
})
