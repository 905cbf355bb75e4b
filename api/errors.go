package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/service"
	"github.com/papercomputeco/strata/pkg/storage"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeRejected           = "REJECTED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternal           = "INTERNAL"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// Response wraps the body of every successful request.
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(Response{Success: true, Data: data})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg, Code: CodeInvalidRequest})
}

// classifyError maps a service error to an HTTP status and error code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, memory.ErrConversationNotFound):
		return fiber.StatusNotFound, CodeNotFound
	case errors.Is(err, memory.ErrEmptyContent),
		errors.Is(err, memory.ErrEmptyConversationID),
		errors.Is(err, memory.ErrInvalidPhase),
		errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, storage.ErrUnavailable):
		return fiber.StatusServiceUnavailable, CodeStorageUnavailable
	case errors.Is(err, storage.ErrRejected):
		return fiber.StatusUnprocessableEntity, CodeRejected
	}
	return fiber.StatusInternalServerError, CodeInternal
}

// fail writes the error envelope for err.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status, code := classifyError(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error(), Code: code})
}

// fallbackErrorHandler keeps fiber's own errors (unknown routes, bad methods)
// inside the envelope.
func fallbackErrorHandler(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, CodeInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		switch {
		case status == fiber.StatusNotFound:
			code = CodeNotFound
		case status < fiber.StatusInternalServerError:
			code = CodeInvalidRequest
		}
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error(), Code: code})
}
