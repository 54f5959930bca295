package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ai-secretary/internal/api/dto"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

// LLMBackend is the runtime view of the LLM fallback classifier.
type LLMBackend interface {
	Enabled() bool
	SetEnabled(enabled bool)
	IsAvailable(ctx context.Context) bool
	Model() string
	BaseURL() string
	BreakerState() string
}

// LLMHandler reports and toggles the LLM fallback.
type LLMHandler struct {
	llm LLMBackend
}

// NewLLMHandler constructs handler. A nil backend reports the fallback as not configured.
func NewLLMHandler(llm LLMBackend) *LLMHandler {
	return &LLMHandler{llm: llm}
}

// Status GET /api/llm/status.
func (h *LLMHandler) Status(c *fiber.Ctx) error {
	if h.llm == nil {
		return c.JSON(fiber.Map{"data": fiber.Map{"configured": false, "enabled": false, "available": false}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"configured": true,
		"enabled":    h.llm.Enabled(),
		"available":  h.llm.IsAvailable(c.UserContext()),
		"model":      h.llm.Model(),
		"base_url":   h.llm.BaseURL(),
		"breaker":    h.llm.BreakerState(),
	}})
}

// Toggle PATCH /api/llm/toggle.
func (h *LLMHandler) Toggle(c *fiber.Ctx) error {
	if h.llm == nil {
		return apperrors.NewConflict("llm fallback not configured", nil)
	}
	var req dto.LLMToggleRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return apperrors.NewValidationError("enabled is required", nil)
	}
	h.llm.SetEnabled(*req.Enabled)
	return c.JSON(fiber.Map{"data": fiber.Map{"enabled": h.llm.Enabled()}})
}
