package mcp

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/service"
	"github.com/papercomputeco/strata/pkg/storage/inmemory"
	"github.com/papercomputeco/strata/pkg/storage/sqlite"
	"github.com/papercomputeco/strata/pkg/storage/tiered"
)

const convID = "conv-mcp"

func resultText(res *mcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	text, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("Memory tools", func() {
	var (
		ctx    context.Context
		store  *tiered.Store
		svc    *service.Service
		server *Server
	)

	BeforeEach(func() {
		ctx = context.Background()

		driver, err := sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
		store, err = tiered.New(tiered.Config{Cache: inmemory.NewCache(), Local: driver})
		Expect(err).NotTo(HaveOccurred())
		svc, err = service.New(service.Config{Store: store})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{Service: svc, Logger: zap.NewNop()})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Initialize(ctx, convID, "user-1", map[string]string{"role": "developer"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("memory_context", func() {
		It("requires a conversation id", func() {
			res, _, err := server.handleContext(ctx, nil, ContextInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(Equal("conversation_id is required"))
		})

		It("reports an unknown conversation as a tool error", func() {
			res, _, err := server.handleContext(ctx, nil, ContextInput{ConversationID: "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("Loading memory failed"))
		})

		It("returns recent messages, pinned facts and the profile", func() {
			_, err := svc.AppendMessage(ctx, convID, service.MessageInput{Content: "what should we build first?"})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.StoreExplicitKnowledge(ctx, convID, "the deadline is friday", memory.KindFact)
			Expect(err).NotTo(HaveOccurred())

			res, out, err := server.handleContext(ctx, nil, ContextInput{ConversationID: convID})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			Expect(out.ConversationID).To(Equal(convID))
			Expect(out.CurrentPhase).To(Equal(string(memory.PhaseIntake)))
			Expect(out.TotalMessages).To(Equal(2))
			Expect(out.RecentMessages).To(HaveLen(2))
			Expect(out.CriticalFacts).To(ConsistOf("the deadline is friday"))
			Expect(out.Summaries).To(BeEmpty())
			Expect(out.UserProfile).To(HaveKeyWithValue("role", "developer"))
			Expect(resultText(res)).To(ContainSubstring(`"conversation_id":"conv-mcp"`))
		})
	})

	Describe("memory_remember", func() {
		It("pins content as a critical fact", func() {
			res, out, err := server.handleRemember(ctx, nil, RememberInput{
				ConversationID: convID,
				Content:        "I prefer tabs over spaces",
				Kind:           string(memory.KindPreference),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.ID).NotTo(BeEmpty())
			Expect(out.Kind).To(Equal("preference"))

			actx, err := svc.BuildContext(ctx, convID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(actx.CriticalFacts).To(HaveLen(1))
			Expect(actx.CriticalFacts[0].Content).To(Equal("I prefer tabs over spaces"))
		})

		It("defaults the kind to fact", func() {
			_, out, err := server.handleRemember(ctx, nil, RememberInput{ConversationID: convID, Content: "the repo is private"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Kind).To(Equal("fact"))
		})

		It("requires content", func() {
			res, _, err := server.handleRemember(ctx, nil, RememberInput{ConversationID: convID})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})

		It("refuses the forget kind", func() {
			res, _, err := server.handleRemember(ctx, nil, RememberInput{
				ConversationID: convID,
				Content:        "anything",
				Kind:           string(memory.KindForget),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("Remembering failed"))
		})
	})

	Describe("memory_detect_intent", func() {
		It("detects an explicit store command", func() {
			_, out, err := server.handleDetectIntent(ctx, nil, IntentInput{Content: "Please remember that my cat is called Miso."})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.ShouldStore).To(BeTrue())
			Expect(out.ExtractedContent).To(Equal("my cat is called Miso"))
		})

		It("returns an empty intent for plain chat", func() {
			_, out, err := server.handleDetectIntent(ctx, nil, IntentInput{Content: "the build is green"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(IntentOutput{}))
		})
	})
})
