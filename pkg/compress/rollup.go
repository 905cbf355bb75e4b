package compress

import (
	"fmt"
	"time"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/utils"
)

// rollup merges the two oldest blocks until the compressed tier fits within
// MaxBlocks and returns how many merges happened. Merging sums the counts so
// every folded entry stays attributed to exactly one block.
func (e *Engine) rollup(conv *memory.Conversation) int {
	merged := 0
	for len(conv.CompressedMemory) > e.config.MaxBlocks {
		blocks := conv.CompressedMemory
		combined := mergeBlocks(blocks[0], blocks[1], e.config.Now())

		next := make([]memory.CompressedBlock, 0, len(blocks)-1)
		next = append(next, combined)
		next = append(next, blocks[2:]...)
		conv.CompressedMemory = next
		merged++
	}
	return merged
}

func mergeBlocks(older, newer memory.CompressedBlock, now time.Time) memory.CompressedBlock {
	span := memory.TimeRange{Start: older.TimeRange.Start, End: newer.TimeRange.End}
	if newer.TimeRange.Start.Before(span.Start) {
		span.Start = newer.TimeRange.Start
	}
	if older.TimeRange.End.After(span.End) {
		span.End = older.TimeRange.End
	}

	importance := older.Importance
	if newer.Importance.Rank() > importance.Rank() {
		importance = newer.Importance
	}

	insights := make([]memory.Insight, 0, len(older.KeyInsights)+len(newer.KeyInsights))
	insights = append(insights, older.KeyInsights...)
	insights = append(insights, newer.KeyInsights...)

	summary := fmt.Sprintf("%d messages in two merged runs. %s | %s",
		older.OriginalCount+newer.OriginalCount, older.Summary, newer.Summary)

	return memory.CompressedBlock{
		ID:            older.ID,
		OriginalCount: older.OriginalCount + newer.OriginalCount,
		TimeRange:     span,
		Summary:       utils.Truncate(summary, maxSummaryLen),
		KeyInsights:   capInsights(insights),
		Importance:    importance,
		CreatedAt:     now,
	}
}
