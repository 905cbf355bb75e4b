package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/strata/pkg/compress"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/service"
)

// InitializeRequest is the body of POST /v1/conversations/:id.
type InitializeRequest struct {
	UserID  string            `json:"user_id"`
	Context map[string]string `json:"context,omitempty"`
}

// CompressRequest is the optional body of POST /v1/conversations/:id/compress.
// An empty body runs a manual pass with the engine defaults.
type CompressRequest struct {
	Threshold             int   `json:"threshold,omitempty"`
	PreservePhaseInsights *bool `json:"preserve_phase_insights,omitempty"`
}

// PhaseRequest is the body of PUT /v1/conversations/:id/phase.
type PhaseRequest struct {
	Phase    string   `json:"phase"`
	Insights []string `json:"insights,omitempty"`
}

// RememberRequest is the body of POST /v1/conversations/:id/remember.
type RememberRequest struct {
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
}

// ForgetRequest is the body of POST /v1/conversations/:id/forget.
type ForgetRequest struct {
	Content string `json:"content"`
}

// ForgetResponse reports how many remembered facts were unpinned.
type ForgetResponse struct {
	Removed int `json:"removed"`
}

// QueryRequest is the body of POST /v1/conversations/:id/query.
type QueryRequest struct {
	UserID string `json:"user_id,omitempty"`
	Query  string `json:"query"`
}

// IntentRequest is the body of POST /v1/intent.
type IntentRequest struct {
	Content string `json:"content"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleInitialize handles POST /v1/conversations/:id.
func (s *Server) handleInitialize(c *fiber.Ctx) error {
	var req InitializeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.UserID == "" {
		return badRequest(c, "user_id is required")
	}

	conv, err := s.svc.Initialize(c.Context(), c.Params("id"), req.UserID, req.Context)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, conv)
}

// handleAppendMessage handles POST /v1/conversations/:id/messages.
func (s *Server) handleAppendMessage(c *fiber.Ctx) error {
	var req service.MessageInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := s.svc.AppendMessage(c.Context(), c.Params("id"), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: result})
}

// handleBuildContext handles GET /v1/conversations/:id/context.
// Query parameters:
//   - user_id (optional): overrides the conversation's user id
func (s *Server) handleBuildContext(c *fiber.Ctx) error {
	actx, err := s.svc.BuildContext(c.Context(), c.Params("id"), c.Query("user_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, actx)
}

// handleCompress handles POST /v1/conversations/:id/compress.
func (s *Server) handleCompress(c *fiber.Ctx) error {
	var opts *compress.Options
	if len(c.Body()) > 0 {
		var req CompressRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Threshold < 0 {
			return badRequest(c, "threshold must not be negative")
		}
		if req.Threshold > 0 || req.PreservePhaseInsights != nil {
			opts = &compress.Options{Threshold: req.Threshold, PreservePhaseInsights: true}
			if req.PreservePhaseInsights != nil {
				opts.PreservePhaseInsights = *req.PreservePhaseInsights
			}
		}
	}

	result, err := s.svc.Compress(c.Context(), c.Params("id"), opts)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, result)
}

// handleUpdatePhase handles PUT /v1/conversations/:id/phase.
func (s *Server) handleUpdatePhase(c *fiber.Ctx) error {
	var req PhaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Phase == "" {
		return badRequest(c, "phase is required")
	}

	pc, err := s.svc.UpdatePhase(c.Context(), c.Params("id"), memory.Phase(req.Phase), req.Insights)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, pc)
}

// handleRecommendPhase handles GET /v1/conversations/:id/phase/recommendation.
func (s *Server) handleRecommendPhase(c *fiber.Ctx) error {
	rec, err := s.svc.RecommendPhase(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, rec)
}

// handleRemember handles POST /v1/conversations/:id/remember.
func (s *Server) handleRemember(c *fiber.Ctx) error {
	var req RememberRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	kind := memory.KnowledgeKind(req.Kind)
	switch kind {
	case "", memory.KindFact, memory.KindPreference, memory.KindInstruction, memory.KindPersonal:
	default:
		return badRequest(c, "kind must be one of fact, preference, instruction, personal")
	}

	entry, err := s.svc.StoreExplicitKnowledge(c.Context(), c.Params("id"), req.Content, kind)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: entry})
}

// handleForget handles POST /v1/conversations/:id/forget.
func (s *Server) handleForget(c *fiber.Ctx) error {
	var req ForgetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	n, err := s.svc.Forget(c.Context(), c.Params("id"), req.Content)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, ForgetResponse{Removed: n})
}

// handleResolveQuery handles POST /v1/conversations/:id/query.
func (s *Server) handleResolveQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := s.svc.ResolveQuery(c.Context(), c.Params("id"), req.UserID, req.Query)
	if err != nil {
		return s.fail(c, err)
	}

	status := fiber.StatusOK
	if res.Pending != nil {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(Response{Success: true, Data: res})
}

// handleDetectIntent handles POST /v1/intent.
func (s *Server) handleDetectIntent(c *fiber.Ctx) error {
	var req IntentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	return ok(c, s.svc.DetectMemoryIntent(req.Content))
}
