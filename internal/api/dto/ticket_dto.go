package dto

import (
	"time"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// TicketStatusRequest payload.
type TicketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketAssignRequest payload.
type TicketAssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string              `json:"id"`
	Number      string              `json:"number"`
	Title       string              `json:"title"`
	Category    domain.Category     `json:"category"`
	Priority    domain.Priority     `json:"priority"`
	Status      domain.TicketStatus `json:"status"`
	AssigneeID  *string             `json:"assignee_id"`
	SLADeadline time.Time           `json:"sla_deadline"`
	SLAViolated bool                `json:"sla_violated"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description      string     `json:"description"`
	ReporterID       string     `json:"reporter_id"`
	ResponseDeadline time.Time  `json:"response_deadline"`
	FirstRespondedAt *time.Time `json:"first_responded_at"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	IntakeMessageID  string     `json:"intake_message_id"`
}

// LLMToggleRequest enables or disables the LLM fallback at runtime.
type LLMToggleRequest struct {
	Enabled *bool `json:"enabled"`
}
