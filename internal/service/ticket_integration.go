package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/events"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

// TicketIntegration turns classified messages into tickets and links them back.
type TicketIntegration struct {
	intake  *IntakeService
	tickets *TicketService
	logger  *zap.Logger
}

// NewTicketIntegration creates the integration.
func NewTicketIntegration(intake *IntakeService, tickets *TicketService, logger *zap.Logger) *TicketIntegration {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketIntegration{intake: intake, tickets: tickets, logger: logger}
}

// RegisterHandlers subscribes to message events.
func (t *TicketIntegration) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventMessageClassified, t.handleMessageClassified)
}

// CreateForMessage creates (or returns) the ticket for a stored message.
func (t *TicketIntegration) CreateForMessage(ctx context.Context, messageID string) (*domain.Ticket, error) {
	msg, err := t.intake.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	ticket, err := t.createFor(ctx, msg)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.NewValidationError("message does not qualify for a ticket", map[string]any{
			"message_id": messageID,
			"status":     msg.Status,
			"priority":   msg.Priority,
		})
	}
	return ticket, nil
}

func (t *TicketIntegration) createFor(ctx context.Context, msg *domain.IntakeMessage) (*domain.Ticket, error) {
	ticket, err := t.tickets.CreateTicketFromMessage(ctx, msg)
	if err != nil || ticket == nil {
		return ticket, err
	}
	if _, err := t.intake.LinkTicket(ctx, msg.ID, ticket.ID); err != nil {
		t.logger.Warn("linking ticket to message failed",
			zap.String("message_id", msg.ID),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
	return ticket, nil
}

// handleMessageClassified never fails the publisher: errors are logged.
func (t *TicketIntegration) handleMessageClassified(ctx context.Context, event events.Event) error {
	var msg *domain.IntakeMessage
	if payload, ok := event.Payload.(events.MessageClassifiedPayload); ok {
		msg = payload.Message
	}
	if msg == nil {
		loaded, err := t.intake.GetMessage(ctx, event.MessageID)
		if err != nil {
			t.logger.Error("loading classified message failed", zap.String("message_id", event.MessageID), zap.Error(err))
			return nil
		}
		msg = loaded
	}
	if _, err := t.createFor(ctx, msg); err != nil {
		t.logger.Error("ticket creation from message failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
	return nil
}
