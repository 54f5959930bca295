package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ai-secretary/internal/api/http/handlers"
	"github.com/spec-kit/ai-secretary/internal/auth"
	"github.com/spec-kit/ai-secretary/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Intake         *handlers.IntakeHandler
	Tickets        *handlers.TicketsHandler
	Staff          *handlers.StaffHandler
	LLM            *handlers.LLMHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/staff/login", cfg.Staff.Login)

	staffOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireStaffRole()}
	api := app.Group("/api")

	intake := api.Group("/intake")
	intake.Post("/sms", cfg.Intake.SMS)
	intake.Post("/email", cfg.Intake.Email)
	intake.Post("/web", cfg.Intake.Web)
	intake.Post("/call", cfg.Intake.Call)
	intake.Post("/chat", cfg.Intake.Chat)
	intake.Post("/messages", cfg.Intake.CreateMessage)
	intake.Get("/messages", cfg.Intake.ListMessages)
	intake.Get("/messages/:id", cfg.Intake.GetMessage)
	intake.Patch("/messages/:id/status", cfg.Intake.UpdateStatus)
	intake.Post("/messages/:id/classify", cfg.Intake.Classify)
	intake.Get("/stats", cfg.Intake.Stats)

	tickets := api.Group("/tickets")
	tickets.Get("/sla/dashboard", cfg.Tickets.SLADashboard)
	tickets.Get("/sla/violations", cfg.Tickets.SLAViolations)
	tickets.Get("/sla/upcoming", cfg.Tickets.SLAUpcoming)
	tickets.Get("/staff", cfg.Staff.ListStaff)
	tickets.Get("/staff/workload", cfg.Staff.Workload)
	tickets.Get("/by-message/:messageId", cfg.Tickets.GetTicketByMessage)
	tickets.Post("/from-message/:messageId", cfg.Tickets.CreateFromMessage)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", append(staffOnly, cfg.Tickets.UpdateStatus)...)
	tickets.Patch("/:id/assign", append(staffOnly, cfg.Tickets.Assign)...)

	llm := api.Group("/llm")
	llm.Get("/status", cfg.LLM.Status)
	llm.Patch("/toggle", append(staffOnly, cfg.LLM.Toggle)...)
}
