package dto

import (
	"time"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// SMSRequest is the SMS gateway callback payload.
type SMSRequest struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// EmailRequest is an inbound email. Subject is prepended to the body.
type EmailRequest struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WebFormRequest is the resident web form. Either Email or Name identifies
// the sender.
type WebFormRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// CallRequest carries a phone call transcript.
type CallRequest struct {
	Caller          string `json:"caller"`
	Transcript      string `json:"transcript"`
	DurationSeconds int    `json:"duration"`
}

// ChatRequest is a chat widget message.
type ChatRequest struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// IntakeRequest is the channel-agnostic intake payload.
type IntakeRequest struct {
	Channel    domain.Channel `json:"channel"`
	Content    string         `json:"content"`
	Sender     string         `json:"sender"`
	ReceivedAt *time.Time     `json:"received_at"`
}

// MessageStatusRequest moves a message through its lifecycle.
type MessageStatusRequest struct {
	Status domain.MessageStatus `json:"status"`
}

// MessageResponse exposes only the masked view of a message.
type MessageResponse struct {
	ID                       string                      `json:"id"`
	Channel                  domain.Channel              `json:"channel"`
	Content                  string                      `json:"content"`
	Sender                   string                      `json:"sender"`
	Classification           *domain.Category            `json:"classification"`
	ClassificationConfidence float64                     `json:"classification_confidence"`
	ClassificationMethod     domain.ClassificationMethod `json:"classification_method,omitempty"`
	Priority                 domain.Priority             `json:"priority"`
	Status                   domain.MessageStatus        `json:"status"`
	TicketID                 *string                     `json:"ticket_id"`
	ApartmentUnit            *domain.ApartmentUnitInfo   `json:"apartment_unit"`
	CreatedAt                time.Time                   `json:"created_at"`
	UpdatedAt                time.Time                   `json:"updated_at"`
}

// IntakeStatsResponse is the dashboard summary.
type IntakeStatsResponse struct {
	TotalMessages  int               `json:"total_messages"`
	RecentMessages []MessageResponse `json:"recent_messages"`
}
