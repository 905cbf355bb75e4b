// Package compress bounds a conversation's active memory by folding older
// entries into compressed blocks.
//
// The engine is a two state machine over len(ActiveMemory): at or below the
// target size nothing happens; above the trigger (TargetSize * TriggerRatio)
// an automatic pass keeps the newest TargetSize entries verbatim and folds the
// rest into one [memory.CompressedBlock]. Critical entries, and phase insights
// when enabled, are never folded: they move to the front of the active tier.
//
// Compression is synchronous and touches only in-memory data.
package compress

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/strata/pkg/classify"
	"github.com/papercomputeco/strata/pkg/memory"
)

const (
	defaultTargetSize   = 20
	defaultTriggerRatio = 1.5
	defaultMaxBlocks    = 10
)

// Config is the configuration for an Engine.
type Config struct {
	// TargetSize is the number of recent entries kept verbatim (defaults to 20).
	TargetSize int

	// TriggerRatio scales TargetSize into the automatic trigger (defaults to 1.5).
	TriggerRatio float64

	// MaxBlocks bounds the compressed tier. Older blocks are merged pairwise
	// once it is exceeded (defaults to 10).
	MaxBlocks int

	// PreservePhaseInsights keeps entries tagged phase-insight out of blocks.
	PreservePhaseInsights bool

	// Insights categorizes folded entries. Defaults to the keyword classifier
	// over Lexicon.
	Insights classify.Classifier[[]memory.InsightCategory]

	// Lexicon supplies stopwords for summary keywords and the default
	// insight word lists. The zero value uses classify.DefaultLexicon.
	Lexicon *classify.Lexicon

	// Now is the engine clock (defaults to time.Now).
	Now func() time.Time
}

// Options tune a single compression pass.
type Options struct {
	// Threshold is the active size that must be exceeded before anything is
	// folded. Zero means TargetSize.
	Threshold int

	// PreservePhaseInsights keeps phase-insight entries out of the block.
	PreservePhaseInsights bool
}

// Result describes one compression pass.
type Result struct {
	CompressedCount int                     `json:"compressed_count"`
	PreservedCount  int                     `json:"preserved_count"`
	ActiveCount     int                     `json:"active_count"`
	Block           *memory.CompressedBlock `json:"block,omitempty"`
	MergedBlocks    int                     `json:"merged_blocks"`
}

// Engine compresses conversations in place.
type Engine struct {
	config    Config
	insights  classify.Classifier[[]memory.InsightCategory]
	stopwords map[string]struct{}
}

// NewEngine creates an engine, filling unset Config fields with defaults.
func NewEngine(c Config) *Engine {
	if c.TargetSize <= 0 {
		c.TargetSize = defaultTargetSize
	}
	if c.TriggerRatio < 1 {
		c.TriggerRatio = defaultTriggerRatio
	}
	if c.MaxBlocks <= 0 {
		c.MaxBlocks = defaultMaxBlocks
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	lex := classify.DefaultLexicon()
	if c.Lexicon != nil {
		lex = *c.Lexicon
	}
	if c.Insights == nil {
		c.Insights = classify.NewInsights(lex)
	}

	stopwords := make(map[string]struct{}, len(lex.Stopwords))
	for _, w := range lex.Stopwords {
		stopwords[w] = struct{}{}
	}

	return &Engine{
		config:    c,
		insights:  c.Insights,
		stopwords: stopwords,
	}
}

// TargetSize is the number of entries a pass keeps verbatim.
func (e *Engine) TargetSize() int {
	return e.config.TargetSize
}

// Trigger is the active size above which compression runs automatically.
func (e *Engine) Trigger() int {
	return int(math.Floor(float64(e.config.TargetSize) * e.config.TriggerRatio))
}

// ManualOptions returns the options of a caller-requested pass: anything above
// the target size is folded.
func (e *Engine) ManualOptions() Options {
	return Options{
		Threshold:             e.config.TargetSize,
		PreservePhaseInsights: e.config.PreservePhaseInsights,
	}
}

// AutoOptions returns the options of the post-append check: nothing happens
// until the trigger is exceeded.
func (e *Engine) AutoOptions() Options {
	return Options{
		Threshold:             e.Trigger(),
		PreservePhaseInsights: e.config.PreservePhaseInsights,
	}
}

// NeedsCompression reports whether conv is over the automatic trigger.
func (e *Engine) NeedsCompression(conv *memory.Conversation) bool {
	return len(conv.ActiveMemory) > e.Trigger()
}

// Compress runs one pass over conv, mutating it in place. A pass below the
// threshold, or one where every candidate is preserved, is a no-op with
// CompressedCount 0.
func (e *Engine) Compress(conv *memory.Conversation, opts Options) Result {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = e.config.TargetSize
	}

	active := conv.ActiveMemory
	if len(active) <= threshold || len(active) <= e.config.TargetSize {
		return Result{ActiveCount: len(active)}
	}

	split := len(active) - e.config.TargetSize
	candidates := active[:split]
	toKeep := active[split:]

	var preserve, toCompress []memory.Entry
	for _, entry := range candidates {
		if entry.IsCritical() || (opts.PreservePhaseInsights && entry.HasTag(memory.TagPhaseInsight)) {
			preserve = append(preserve, entry)
			continue
		}
		toCompress = append(toCompress, entry)
	}

	if len(toCompress) == 0 {
		return Result{ActiveCount: len(active)}
	}

	block := e.buildBlock(candidates, toCompress)

	next := make([]memory.Entry, 0, len(preserve)+len(toKeep))
	next = append(next, preserve...)
	next = append(next, toKeep...)
	conv.ActiveMemory = next

	for _, entry := range preserve {
		if entry.IsCritical() && !conv.HasCriticalFact(entry.ID) {
			conv.CriticalFacts = append(conv.CriticalFacts, entry)
		}
	}

	conv.CompressedMemory = append(conv.CompressedMemory, block)
	merged := e.rollup(conv)

	return Result{
		CompressedCount: len(toCompress),
		PreservedCount:  len(preserve),
		ActiveCount:     len(conv.ActiveMemory),
		Block:           &block,
		MergedBlocks:    merged,
	}
}

// buildBlock digests folded into one block. candidates is the evicted run
// before preservation and decides the block importance.
func (e *Engine) buildBlock(candidates, folded []memory.Entry) memory.CompressedBlock {
	importance := memory.ImportanceMedium
	for _, entry := range candidates {
		if entry.IsCritical() {
			importance = memory.ImportanceCritical
			break
		}
	}

	ex := e.extract(folded)
	span := timeRange(folded)

	return memory.CompressedBlock{
		ID:            uuid.NewString(),
		OriginalCount: len(folded),
		TimeRange:     span,
		Summary:       summarize(len(folded), e.keywords(folded, maxSummaryKeywords), span, ex.counts),
		KeyInsights:   ex.insights,
		Importance:    importance,
		CreatedAt:     e.config.Now(),
	}
}

func timeRange(entries []memory.Entry) memory.TimeRange {
	var tr memory.TimeRange
	for i, entry := range entries {
		if i == 0 || entry.CreatedAt.Before(tr.Start) {
			tr.Start = entry.CreatedAt
		}
		if i == 0 || entry.CreatedAt.After(tr.End) {
			tr.End = entry.CreatedAt
		}
	}
	return tr
}
