package api

import (
	"github.com/gofiber/fiber/v2"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Online  bool   `json:"online"`
	Breaker string `json:"breaker"`
	Queued  int    `json:"queued"`
}

// handleHealth reports liveness plus connectivity. Running offline is healthy.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	st, err := s.syncer.Status(c.Context())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(HealthResponse{
		Status:  "ok",
		Online:  st.Online,
		Breaker: st.Breaker,
		Queued:  st.Queued,
	})
}

// handleSyncStatus handles GET /v1/sync.
func (s *Server) handleSyncStatus(c *fiber.Ctx) error {
	st, err := s.syncer.Status(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, st)
}

// handleSyncDrain handles POST /v1/sync/drain. Draining while offline is
// refused rather than burning retry attempts.
func (s *Server) handleSyncDrain(c *fiber.Ctx) error {
	st, err := s.syncer.Status(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	if !st.Online {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "remote tier is offline",
			Code:  CodeStorageUnavailable,
		})
	}

	result, err := s.syncer.Drain(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, result)
}
