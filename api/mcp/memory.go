package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/memory"
)

var (
	contextToolName    = "memory_context"
	contextDescription = "Load the working memory of a conversation: recent messages, pinned critical facts, summaries of older compressed history, the user profile and the current phase. Call this before answering to stay consistent with what the user already said."

	rememberToolName    = "memory_remember"
	rememberDescription = "Pin a piece of knowledge the user explicitly asked to be remembered. Pinned facts survive compression and are returned by memory_context until the user asks to forget them."

	intentToolName    = "memory_detect_intent"
	intentDescription = "Check whether a user message is an explicit memory command (\"remember that ...\", \"forget ...\") or a soft personal signal worth confirming. Has no side effects."
)

// ContextInput represents the input arguments for the memory_context tool.
type ContextInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"the conversation to load memory for"`
	UserID         string `json:"user_id,omitempty" jsonschema:"optional user id, defaults to the conversation owner"`
}

// MessageOutput is a single message in a context result.
type MessageOutput struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Importance string `json:"importance"`
}

// ContextOutput is the model-facing view of the assistant context.
type ContextOutput struct {
	ConversationID string            `json:"conversation_id"`
	CurrentPhase   string            `json:"current_phase"`
	TotalMessages  int               `json:"total_messages"`
	Online         bool              `json:"online"`
	RecentMessages []MessageOutput   `json:"recent_messages"`
	CriticalFacts  []string          `json:"critical_facts"`
	Summaries      []string          `json:"summaries"`
	UserProfile    map[string]string `json:"user_profile"`
}

// RememberInput represents the input arguments for the memory_remember tool.
type RememberInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"the conversation to pin the knowledge in"`
	Content        string `json:"content" jsonschema:"the knowledge to remember, without the command phrase"`
	Kind           string `json:"kind,omitempty" jsonschema:"one of fact, preference, instruction, personal (defaults to fact)"`
}

// RememberOutput describes the pinned entry.
type RememberOutput struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

// IntentInput represents the input arguments for the memory_detect_intent tool.
type IntentInput struct {
	Content string `json:"content" jsonschema:"the user message to inspect"`
}

// IntentOutput mirrors the detected memory intent.
type IntentOutput struct {
	ShouldStore      bool   `json:"should_store"`
	ShouldAsk        bool   `json:"should_ask"`
	Kind             string `json:"kind,omitempty"`
	ExtractedContent string `json:"extracted_content,omitempty"`
}

// handleContext processes a memory_context request via MCP.
func (s *Server) handleContext(ctx context.Context, _ *mcp.CallToolRequest, input ContextInput) (*mcp.CallToolResult, ContextOutput, error) {
	if input.ConversationID == "" {
		return errorResult("conversation_id is required"), ContextOutput{}, nil
	}

	actx, err := s.config.Service.BuildContext(ctx, input.ConversationID, input.UserID)
	if err != nil {
		return errorResult(fmt.Sprintf("Loading memory failed: %v", err)), ContextOutput{}, nil
	}

	output := ContextOutput{
		ConversationID: actx.ConversationID,
		CurrentPhase:   string(actx.CurrentPhase),
		TotalMessages:  actx.TotalMessages,
		Online:         actx.Online,
		RecentMessages: make([]MessageOutput, 0, len(actx.RecentMessages)),
		CriticalFacts:  make([]string, 0, len(actx.CriticalFacts)),
		Summaries:      make([]string, 0, len(actx.CompressedMemory)),
		UserProfile:    actx.UserProfile,
	}
	for _, e := range actx.RecentMessages {
		output.RecentMessages = append(output.RecentMessages, MessageOutput{
			Role:       string(e.Role),
			Content:    e.Content,
			Importance: string(e.Importance),
		})
	}
	for _, e := range actx.CriticalFacts {
		output.CriticalFacts = append(output.CriticalFacts, e.Content)
	}
	for _, b := range actx.CompressedMemory {
		output.Summaries = append(output.Summaries, b.Summary)
	}

	return s.jsonResult(output), output, nil
}

// handleRemember processes a memory_remember request via MCP.
func (s *Server) handleRemember(ctx context.Context, _ *mcp.CallToolRequest, input RememberInput) (*mcp.CallToolResult, RememberOutput, error) {
	if input.ConversationID == "" {
		return errorResult("conversation_id is required"), RememberOutput{}, nil
	}
	if input.Content == "" {
		return errorResult("content is required"), RememberOutput{}, nil
	}

	kind := memory.KnowledgeKind(input.Kind)
	if kind == "" {
		kind = memory.KindFact
	}

	entry, err := s.config.Service.StoreExplicitKnowledge(ctx, input.ConversationID, input.Content, kind)
	if err != nil {
		return errorResult(fmt.Sprintf("Remembering failed: %v", err)), RememberOutput{}, nil
	}

	s.config.Logger.Debug("knowledge pinned via mcp",
		zap.String("conversation_id", input.ConversationID),
		zap.String("entry_id", entry.ID),
	)

	output := RememberOutput{ID: entry.ID, Content: entry.Content, Kind: string(kind)}
	return s.jsonResult(output), output, nil
}

// handleDetectIntent processes a memory_detect_intent request via MCP.
func (s *Server) handleDetectIntent(_ context.Context, _ *mcp.CallToolRequest, input IntentInput) (*mcp.CallToolResult, IntentOutput, error) {
	intent := s.config.Service.DetectMemoryIntent(input.Content)
	output := IntentOutput{
		ShouldStore:      intent.ShouldStore,
		ShouldAsk:        intent.ShouldAsk,
		Kind:             string(intent.Kind),
		ExtractedContent: intent.ExtractedContent,
	}
	return s.jsonResult(output), output, nil
}

func (s *Server) jsonResult(v any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
