package classify_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/classify"
	"github.com/papercomputeco/strata/pkg/memory"
)

var _ = Describe("Intents", func() {
	var c *classify.Intents

	BeforeEach(func() {
		c = classify.NewIntents(classify.DefaultLexicon())
	})

	It("detects an explicit store command", func() {
		intent := c.Classify("Please remember that the staging db is on port 5433.")
		Expect(intent.ShouldStore).To(BeTrue())
		Expect(intent.ShouldAsk).To(BeFalse())
		Expect(intent.Kind).To(Equal(memory.KindFact))
		Expect(intent.ExtractedContent).To(Equal("the staging db is on port 5433"))
	})

	It("derives the kind from the remembered content", func() {
		Expect(c.Classify("remember that I prefer tabs over spaces").Kind).To(Equal(memory.KindPreference))
		Expect(c.Classify("keep in mind: always squash commits").Kind).To(Equal(memory.KindInstruction))
		Expect(c.Classify("don't forget my birthday is in May").Kind).To(Equal(memory.KindPersonal))
	})

	It("detects a forget command", func() {
		intent := c.Classify("forget about the old staging host")
		Expect(intent.IsForget()).To(BeTrue())
		Expect(intent.ShouldStore).To(BeFalse())
		Expect(intent.ExtractedContent).To(Equal("the old staging host"))
	})

	It("prefers the earliest command", func() {
		intent := c.Classify("forget that, remember this: use port 8080")
		Expect(intent.IsForget()).To(BeTrue())
	})

	It("treats don't forget as a store command", func() {
		intent := c.Classify("don't forget the api rate limit is 100/min")
		Expect(intent.ShouldStore).To(BeTrue())
		Expect(intent.IsForget()).To(BeFalse())
	})

	It("asks when a command has nothing to store", func() {
		intent := c.Classify("remember this.")
		Expect(intent.ShouldStore).To(BeFalse())
		Expect(intent.ShouldAsk).To(BeTrue())
	})

	It("asks on a soft personal signal", func() {
		intent := c.Classify("Hi there. My name is Ada and I write compilers.")
		Expect(intent.ShouldStore).To(BeFalse())
		Expect(intent.ShouldAsk).To(BeTrue())
		Expect(intent.Kind).To(Equal(memory.KindPersonal))
		Expect(intent.ExtractedContent).To(Equal("My name is Ada and I write compilers"))
	})

	It("returns an empty intent for plain text", func() {
		Expect(c.Classify("the weather is nice")).To(Equal(memory.Intent{}))
	})
})
