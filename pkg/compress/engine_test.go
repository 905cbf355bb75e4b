package compress_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/compress"
	"github.com/papercomputeco/strata/pkg/memory"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// appendEntry mirrors the service append path: critical entries are pinned
// and the automatic check runs after every append.
func appendEntry(e *compress.Engine, conv *memory.Conversation, content string, importance memory.Importance, tags ...string) memory.Entry {
	entry := memory.Entry{
		ID:             fmt.Sprintf("e-%03d", conv.TotalMessages+1),
		ConversationID: conv.ConversationID,
		Role:           memory.RoleUser,
		Content:        content,
		Importance:     importance,
		Tags:           tags,
		CreatedAt:      epoch.Add(time.Duration(conv.TotalMessages) * time.Minute),
	}
	conv.ActiveMemory = append(conv.ActiveMemory, entry)
	if entry.IsCritical() {
		conv.CriticalFacts = append(conv.CriticalFacts, entry)
	}
	conv.TotalMessages++
	if e.NeedsCompression(conv) {
		e.Compress(conv, e.AutoOptions())
	}
	return entry
}

func appendPlain(e *compress.Engine, conv *memory.Conversation, n int) {
	for range n {
		appendEntry(e, conv, fmt.Sprintf("sunny skies today, forecast %d", conv.TotalMessages), memory.ImportanceLow)
	}
}

func conserved(conv *memory.Conversation) bool {
	return conv.TotalMessages == len(conv.ActiveMemory)+conv.CompressedCount()
}

var _ = Describe("Engine", func() {
	var (
		engine *compress.Engine
		conv   *memory.Conversation
	)

	BeforeEach(func() {
		engine = compress.NewEngine(compress.Config{
			PreservePhaseInsights: true,
			Now:                   func() time.Time { return epoch.Add(24 * time.Hour) },
		})
		conv = memory.NewConversation("conv-1", "user-1", nil, epoch)
	})

	It("derives the trigger from the target size", func() {
		Expect(engine.TargetSize()).To(Equal(20))
		Expect(engine.Trigger()).To(Equal(30))
	})

	Describe("automatic compression", func() {
		It("does nothing at or below the trigger", func() {
			appendPlain(engine, conv, 30)
			Expect(conv.ActiveMemory).To(HaveLen(30))
			Expect(conv.CompressedMemory).To(BeEmpty())
		})

		It("folds the oldest entries on the 31st append", func() {
			appendPlain(engine, conv, 31)

			Expect(conv.ActiveMemory).To(HaveLen(20))
			Expect(conv.CompressedMemory).To(HaveLen(1))
			Expect(conv.CompressedMemory[0].OriginalCount).To(Equal(11))
			Expect(conv.ActiveMemory[0].ID).To(Equal("e-012"))
			Expect(conserved(conv)).To(BeTrue())
		})

		It("keeps a single block across 35 appends", func() {
			appendPlain(engine, conv, 35)

			Expect(conv.CompressedMemory).To(HaveLen(1))
			Expect(conv.CompressedMemory[0].OriginalCount).To(Equal(11))
			Expect(conv.ActiveMemory).To(HaveLen(24))
			Expect(conv.CompressedMemory[0].Importance).To(Equal(memory.ImportanceMedium))
			Expect(conserved(conv)).To(BeTrue())
		})
	})

	Describe("critical entries", func() {
		It("survive compression in critical facts", func() {
			appendPlain(engine, conv, 25)
			critical := appendEntry(engine, conv,
				"important: remember the deploy key is rotated weekly", memory.ImportanceCritical)
			appendPlain(engine, conv, 10)

			Expect(conv.CompressedMemory).To(HaveLen(1))
			Expect(conv.CriticalFacts).To(ContainElement(critical))
			Expect(conserved(conv)).To(BeTrue())
		})

		It("are preserved rather than folded when evicted", func() {
			critical := appendEntry(engine, conv, "never share the root password", memory.ImportanceCritical)
			appendPlain(engine, conv, 30)

			block := conv.CompressedMemory[0]
			Expect(block.OriginalCount).To(Equal(10))
			Expect(block.Importance).To(Equal(memory.ImportanceCritical))
			Expect(conv.ActiveMemory[0]).To(Equal(critical))
			Expect(conv.ActiveMemory).To(HaveLen(21))
			Expect(conv.CriticalFacts).To(ContainElement(critical))
			Expect(conserved(conv)).To(BeTrue())
		})

		It("are restored to critical facts if missing", func() {
			critical := appendEntry(engine, conv, "never share the root password", memory.ImportanceCritical)
			conv.CriticalFacts = nil
			appendPlain(engine, conv, 30)

			Expect(conv.CriticalFacts).To(ConsistOf(critical))
		})
	})

	Describe("phase insights", func() {
		It("are preserved when enabled", func() {
			insight := appendEntry(engine, conv, "phase reflect: caching matters", memory.ImportanceLow, memory.TagPhaseInsight)
			appendPlain(engine, conv, 30)

			Expect(conv.ActiveMemory[0]).To(Equal(insight))
			Expect(conv.CompressedMemory[0].OriginalCount).To(Equal(10))
		})

		It("are folded when disabled", func() {
			engine = compress.NewEngine(compress.Config{})
			appendEntry(engine, conv, "phase reflect: caching matters", memory.ImportanceLow, memory.TagPhaseInsight)
			appendPlain(engine, conv, 30)

			Expect(conv.CompressedMemory[0].OriginalCount).To(Equal(11))
		})
	})

	Describe("manual compression", func() {
		It("is a no-op at or below the target", func() {
			appendPlain(engine, conv, 20)
			result := engine.Compress(conv, engine.ManualOptions())

			Expect(result.CompressedCount).To(BeZero())
			Expect(result.Block).To(BeNil())
			Expect(conv.ActiveMemory).To(HaveLen(20))
		})

		It("folds down to the target and is idempotent", func() {
			appendPlain(engine, conv, 25)

			result := engine.Compress(conv, engine.ManualOptions())
			Expect(result.CompressedCount).To(Equal(5))
			Expect(result.ActiveCount).To(Equal(20))

			again := engine.Compress(conv, engine.ManualOptions())
			Expect(again.CompressedCount).To(BeZero())
			Expect(conv.CompressedMemory).To(HaveLen(1))
		})

		It("is a no-op when every candidate is preserved", func() {
			for i := range 5 {
				appendEntry(engine, conv, fmt.Sprintf("never do thing %d", i), memory.ImportanceCritical)
			}
			appendPlain(engine, conv, 20)

			result := engine.Compress(conv, engine.ManualOptions())
			Expect(result.CompressedCount).To(BeZero())
			Expect(conv.ActiveMemory).To(HaveLen(25))
		})

		It("bounds the active tier by target plus preserved entries", func() {
			appendEntry(engine, conv, "never do that", memory.ImportanceCritical)
			appendPlain(engine, conv, 24)

			result := engine.Compress(conv, engine.ManualOptions())
			Expect(len(conv.ActiveMemory)).To(BeNumerically("<=", 20+result.PreservedCount))
			Expect(result.PreservedCount).To(Equal(1))
		})
	})

	Describe("extraction", func() {
		It("caps insights per category and bounds excerpts", func() {
			for i := range 6 {
				appendEntry(engine, conv, fmt.Sprintf("I learned lesson %d the hard way after the deploy failed with an error in the migration step %s", i, longTail), memory.ImportanceLow)
			}
			appendPlain(engine, conv, 20)

			result := engine.Compress(conv, engine.ManualOptions())
			Expect(result.CompressedCount).To(Equal(6))

			var wisdom, gotcha int
			for _, ins := range result.Block.KeyInsights {
				switch ins.Category {
				case memory.InsightWisdom:
					wisdom++
					Expect(len([]rune(ins.Text))).To(BeNumerically("<=", 120))
				case memory.InsightGotcha:
					gotcha++
					Expect(len([]rune(ins.Text))).To(BeNumerically("<=", 100))
				}
			}
			Expect(wisdom).To(Equal(3))
			Expect(gotcha).To(Equal(2))
			Expect(result.Block.Summary).To(ContainSubstring("6 wisdom"))
			Expect(result.Block.Summary).To(ContainSubstring("6 messages"))
		})

		It("counts high importance entries as wisdom", func() {
			appendEntry(engine, conv, "ship the beta by friday", memory.ImportanceHigh)
			appendPlain(engine, conv, 20)

			result := engine.Compress(conv, engine.ManualOptions())
			Expect(result.Block.KeyInsights).To(ConsistOf(memory.Insight{
				Category: memory.InsightWisdom,
				Text:     "ship the beta by friday",
			}))
		})

		It("records the folded time range", func() {
			appendPlain(engine, conv, 25)
			result := engine.Compress(conv, engine.ManualOptions())

			Expect(result.Block.TimeRange.Start).To(Equal(epoch))
			Expect(result.Block.TimeRange.End).To(Equal(epoch.Add(4 * time.Minute)))
		})
	})

	Describe("Keywords", func() {
		It("orders by frequency then first occurrence and skips short and stop words", func() {
			kw := engine.Keywords("Postgres replica lag: the replica fell behind because postgres vacuum stalled the replica", 0)
			Expect(kw).To(Equal([]string{"replica", "postgres", "behind", "vacuum", "stalled"}))
		})

		It("applies the limit", func() {
			Expect(engine.Keywords("alpha bravo charlie delta", 2)).To(Equal([]string{"alpha", "bravo"}))
		})
	})

	Describe("block retention", func() {
		It("merges the oldest blocks past the limit and conserves counts", func() {
			engine = compress.NewEngine(compress.Config{MaxBlocks: 3})
			for range 5 {
				appendPlain(engine, conv, 25)
				engine.Compress(conv, engine.ManualOptions())
			}

			Expect(conv.CompressedMemory).To(HaveLen(3))
			Expect(conserved(conv)).To(BeTrue())
		})
	})
})

const longTail = "while the rollout was halfway through the second region and everyone was asleep"
