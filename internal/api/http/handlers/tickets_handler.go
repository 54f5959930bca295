package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ai-secretary/internal/api/dto"
	"github.com/spec-kit/ai-secretary/internal/auth"
	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/repository"
	"github.com/spec-kit/ai-secretary/internal/service"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

// TicketsHandler manages ticket and SLA endpoints.
type TicketsHandler struct {
	tickets        *service.TicketService
	integration    *service.TicketIntegration
	upcomingWindow time.Duration
	now            func() time.Time
}

// NewTicketsHandler constructs handler. upcomingWindow is the default for
// the upcoming-deadlines view when no hours query is given.
func NewTicketsHandler(tickets *service.TicketService, integration *service.TicketIntegration, upcomingWindow time.Duration) *TicketsHandler {
	if upcomingWindow <= 0 {
		upcomingWindow = 24 * time.Hour
	}
	return &TicketsHandler{tickets: tickets, integration: integration, upcomingWindow: upcomingWindow, now: time.Now}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets, h.now())})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, h.now())})
}

// GetTicketByMessage GET /api/tickets/by-message/:messageId.
func (h *TicketsHandler) GetTicketByMessage(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicketByMessage(c.UserContext(), c.Params("messageId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, h.now())})
}

// CreateFromMessage POST /api/tickets/from-message/:messageId.
func (h *TicketsHandler) CreateFromMessage(c *fiber.Ctx) error {
	ticket, err := h.integration.CreateForMessage(c.UserContext(), c.Params("messageId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, h.now())})
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	staffID, err := staffPrincipalID(c)
	if err != nil {
		return err
	}
	var req dto.TicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), staffID, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, h.now())})
}

// Assign PATCH /api/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	staffID, err := staffPrincipalID(c)
	if err != nil {
		return err
	}
	var req dto.TicketAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Assign(c.UserContext(), staffID, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, h.now())})
}

// SLADashboard GET /api/tickets/sla/dashboard.
func (h *TicketsHandler) SLADashboard(c *fiber.Ctx) error {
	dashboard, err := h.tickets.SLADashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"dashboard": dashboard,
		"rules":     h.tickets.SLARules(),
	}})
}

// SLAViolations GET /api/tickets/sla/violations.
func (h *TicketsHandler) SLAViolations(c *fiber.Ctx) error {
	tickets, err := h.tickets.Violations(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets, h.now())})
}

// SLAUpcoming GET /api/tickets/sla/upcoming?hours=.
func (h *TicketsHandler) SLAUpcoming(c *fiber.Ctx) error {
	window := h.upcomingWindow
	if raw := c.Query("hours"); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil || hours <= 0 {
			return apperrors.NewValidationError("hours must be a positive number", map[string]any{"hours": raw})
		}
		window = time.Duration(hours * float64(time.Hour))
	}
	tickets, err := h.tickets.UpcomingDeadlines(c.UserContext(), window)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets, h.now())})
}

func staffPrincipalID(c *fiber.Ctx) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return "", apperrors.NewUnauthorized("staff required")
	}
	return principal.StaffID(), nil
}

func parseTicketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return filter, apperrors.NewValidationError("invalid status", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			p := domain.Priority(strings.TrimSpace(part))
			if !p.Valid() {
				return filter, apperrors.NewValidationError("invalid priority", map[string]any{"priority": part})
			}
			filter.Priorities = append(filter.Priorities, p)
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		category := domain.Category(categoryStr)
		if !category.Valid() {
			return filter, apperrors.NewValidationError("invalid category", map[string]any{"category": categoryStr})
		}
		filter.Category = &category
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}
