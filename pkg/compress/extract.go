package compress

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/utils"
)

const (
	maxSummaryKeywords = 8
	minKeywordLen      = 5
	maxSummaryLen      = 400
)

// insightLimit is the per-block cap and excerpt length of one category.
type insightLimit struct {
	max     int
	excerpt int
}

var insightLimits = map[memory.InsightCategory]insightLimit{
	memory.InsightWisdom:  {max: 3, excerpt: 120},
	memory.InsightPattern: {max: 2, excerpt: 100},
	memory.InsightGotcha:  {max: 2, excerpt: 100},
}

var insightOrder = []memory.InsightCategory{
	memory.InsightWisdom, memory.InsightPattern, memory.InsightGotcha,
}

type extraction struct {
	insights []memory.Insight
	counts   map[memory.InsightCategory]int
}

// extract classifies each folded entry and keeps capped excerpts. Counts
// cover every match, including ones past the cap.
func (e *Engine) extract(folded []memory.Entry) extraction {
	ex := extraction{counts: make(map[memory.InsightCategory]int, len(insightOrder))}
	byCategory := make(map[memory.InsightCategory][]memory.Insight, len(insightOrder))

	for _, entry := range folded {
		categories := e.insights.Classify(entry.Content)
		if entry.Importance.Rank() >= memory.ImportanceHigh.Rank() && !slices.Contains(categories, memory.InsightWisdom) {
			categories = append(categories, memory.InsightWisdom)
		}

		for _, cat := range categories {
			limit, ok := insightLimits[cat]
			if !ok {
				continue
			}
			ex.counts[cat]++
			if len(byCategory[cat]) < limit.max {
				byCategory[cat] = append(byCategory[cat], memory.Insight{
					Category: cat,
					Text:     excerpt(entry.Content, limit.excerpt),
				})
			}
		}
	}

	for _, cat := range insightOrder {
		ex.insights = append(ex.insights, byCategory[cat]...)
	}
	return ex
}

// capInsights re-applies the per-category caps to an ordered insight list.
func capInsights(in []memory.Insight) []memory.Insight {
	seen := make(map[memory.InsightCategory]int, len(insightOrder))
	var out []memory.Insight
	for _, cat := range insightOrder {
		for _, ins := range in {
			if ins.Category != cat || seen[cat] >= insightLimits[cat].max {
				continue
			}
			seen[cat]++
			out = append(out, ins)
		}
	}
	return out
}

func excerpt(content string, limit int) string {
	return utils.Truncate(strings.Join(strings.Fields(content), " "), limit)
}

// Keywords returns the distinct significant words of text ordered by
// frequency, then first occurrence. Words shorter than five letters and
// stopwords are skipped. limit <= 0 returns every keyword.
func (e *Engine) Keywords(text string, limit int) []string {
	return e.keywords([]memory.Entry{{Content: text}}, limit)
}

func (e *Engine) keywords(entries []memory.Entry, limit int) []string {
	counts := make(map[string]int)
	var order []string

	for _, entry := range entries {
		words := strings.FieldsFunc(strings.ToLower(entry.Content), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if utf8.RuneCountInString(w) < minKeywordLen {
				continue
			}
			if _, stop := e.stopwords[w]; stop {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	// order is first-occurrence order, so a stable sort keeps ties in place.
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}

func summarize(count int, keywords []string, span memory.TimeRange, counts map[memory.InsightCategory]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d messages from %s to %s.",
		count,
		span.Start.UTC().Format("2006-01-02 15:04"),
		span.End.UTC().Format("2006-01-02 15:04"),
	)
	if len(keywords) > 0 {
		fmt.Fprintf(&b, " Topics: %s.", strings.Join(keywords, ", "))
	}
	fmt.Fprintf(&b, " Insights: %d wisdom, %d pattern, %d gotcha.",
		counts[memory.InsightWisdom],
		counts[memory.InsightPattern],
		counts[memory.InsightGotcha],
	)
	return b.String()
}
