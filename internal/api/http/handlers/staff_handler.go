package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ai-secretary/internal/api/dto"
	"github.com/spec-kit/ai-secretary/internal/service"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

// StaffHandler exposes staff login, the roster and workload reports.
type StaffHandler struct {
	authService *service.AuthService
	assignment  *service.AssignmentService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, assignment *service.AssignmentService) *StaffHandler {
	return &StaffHandler{authService: authService, assignment: assignment}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	staff, token, exp, err := h.authService.LoginStaff(c.UserContext(), req.StaffID, req.AccessCode)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// ListStaff GET /api/tickets/staff?active=true.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	members, err := h.assignment.Staff(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		items = append(items, staffResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Workload GET /api/tickets/staff/workload.
func (h *StaffHandler) Workload(c *fiber.Ctx) error {
	report, err := h.assignment.WorkloadAnalytics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
