package handlers

import (
	"strconv"
	"time"

	"github.com/spec-kit/ai-secretary/internal/api/dto"
	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/sla"
)

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// messageResponse never exposes the raw content or sender.
func messageResponse(msg *domain.IntakeMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:                       msg.ID,
		Channel:                  msg.Channel,
		Content:                  msg.MaskedContent,
		Sender:                   msg.MaskedSender,
		Classification:           msg.Classification,
		ClassificationConfidence: msg.ClassificationConfidence,
		ClassificationMethod:     msg.ClassificationMethod,
		Priority:                 msg.Priority,
		Status:                   msg.Status,
		TicketID:                 msg.TicketID,
		ApartmentUnit:            msg.ApartmentUnit,
		CreatedAt:                msg.CreatedAt,
		UpdatedAt:                msg.UpdatedAt,
	}
}

func messageResponses(msgs []*domain.IntakeMessage) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse(m))
	}
	return out
}

func ticketSummary(ticket *domain.Ticket, now time.Time) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		Number:      ticket.Number,
		Title:       ticket.Title,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		AssigneeID:  ticket.AssigneeID,
		SLADeadline: ticket.SLADeadline,
		SLAViolated: sla.IsViolated(ticket, now),
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketSummaries(tickets []*domain.Ticket, now time.Time) []dto.TicketSummary {
	out := make([]dto.TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, ticketSummary(t, now))
	}
	return out
}

func ticketDetail(ticket *domain.Ticket, now time.Time) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary:    ticketSummary(ticket, now),
		Description:      ticket.Description,
		ReporterID:       ticket.ReporterID,
		ResponseDeadline: ticket.ResponseDeadline,
		FirstRespondedAt: ticket.FirstRespondedAt,
		ResolvedAt:       ticket.ResolvedAt,
		IntakeMessageID:  ticket.IntakeMessageID,
	}
}

func staffResponse(m *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:          m.ID,
		Name:        m.Name,
		Role:        m.Role,
		Department:  m.Department,
		Specialties: m.Specialties,
		Active:      m.Active,
	}
}
