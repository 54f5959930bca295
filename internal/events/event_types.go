package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMessageReceived     EventType = "message.received"
	EventMessageClassified   EventType = "message.classified"
	EventTicketCreated       EventType = "ticket.created"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketAssigned      EventType = "ticket.assigned"
	EventTicketSLAViolated   EventType = "ticket.sla_violated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// SystemActor marks events raised by the pipeline itself.
var SystemActor = Actor{Type: domain.SubjectTypeSystem}

// Event represents a domain event emitted by services after the store write.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	MessageID string      `json:"message_id,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and timestamp.
func New(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// MessageReceivedPayload payload.
type MessageReceivedPayload struct {
	Channel  domain.Channel  `json:"channel"`
	Priority domain.Priority `json:"priority"`
}

// MessageClassifiedPayload carries the stored message so subscribers need no reload.
type MessageClassifiedPayload struct {
	Message *domain.IntakeMessage `json:"-"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number     string          `json:"number"`
	Category   domain.Category `json:"category"`
	Priority   domain.Priority `json:"priority"`
	AssigneeID *string         `json:"assignee_id,omitempty"`
	Title      string          `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeStaffID string `json:"assignee_staff_id"`
}

// TicketSLAViolatedPayload payload.
type TicketSLAViolatedPayload struct {
	Number      string    `json:"number"`
	SLADeadline time.Time `json:"sla_deadline"`
	AssigneeID  *string   `json:"assignee_id,omitempty"`
}
