package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/classifier"
	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/events"
	"github.com/spec-kit/ai-secretary/internal/observability"
	"github.com/spec-kit/ai-secretary/internal/repository"
	"github.com/spec-kit/ai-secretary/internal/sla"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

const (
	titleMaxRunes  = 50
	titleCutRunes  = 47
	receivedLayout = "2006-01-02 15:04:05"

	maxTicketNumberAttempts = 5
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	staff      repository.StaffRepository
	assignment *AssignmentService
	sla        *sla.Engine
	rules      *classifier.RuleBased
	numbers    TicketNumberGenerator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	locks      *keyedMutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	StaffRepo  repository.StaffRepository
	Assignment *AssignmentService
	SLA        *sla.Engine
	// Rules infers a category for escalated messages that were never classified.
	Rules      *classifier.RuleBased
	Numbers    TicketNumberGenerator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		staff:      deps.StaffRepo,
		assignment: deps.Assignment,
		sla:        deps.SLA,
		rules:      deps.Rules,
		numbers:    deps.Numbers,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
		locks:      newKeyedMutex(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.sla == nil {
		s.sla = sla.NewEngine(nil, s.logger)
	}
	if s.rules == nil {
		s.rules = classifier.NewRuleBased(nil)
	}
	if s.numbers == nil {
		s.numbers = NewMemoryTicketNumberGenerator(s.tickets)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// QualifiesForTicket reports whether a message should become a ticket: it has
// left pending, or its priority is high or urgent.
func QualifiesForTicket(msg *domain.IntakeMessage) bool {
	return msg != nil && (msg.Status != domain.MessageStatusPending || msg.Priority.Escalated())
}

// CreateTicketFromMessage creates the ticket for a message. It returns nil
// when the message does not qualify and the existing ticket when one was
// already created for the message.
func (s *TicketService) CreateTicketFromMessage(ctx context.Context, msg *domain.IntakeMessage) (*domain.Ticket, error) {
	if msg == nil || msg.ID == "" {
		return nil, apperrors.NewValidationError("intake message required", nil)
	}
	if !QualifiesForTicket(msg) {
		s.logger.Info("skipping ticket creation; message not ready",
			zap.String("message_id", msg.ID),
			zap.String("status", string(msg.Status)),
			zap.String("priority", string(msg.Priority)))
		return nil, nil
	}

	ticket, created, err := s.createOnce(ctx, msg)
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.RecordTicketCreated(string(ticket.Category), string(ticket.Priority))
		s.logger.Info("ticket created from intake message",
			zap.String("message_id", msg.ID),
			zap.String("ticket_id", ticket.ID),
			zap.String("number", ticket.Number),
			zap.String("category", string(ticket.Category)))
		s.publishEvent(ctx, events.Event{
			Type:      events.EventTicketCreated,
			TicketID:  ticket.ID,
			MessageID: msg.ID,
			Actor:     events.SystemActor,
			Payload: events.TicketCreatedPayload{
				Number:     ticket.Number,
				Category:   ticket.Category,
				Priority:   ticket.Priority,
				AssigneeID: ticket.AssigneeID,
				Title:      ticket.Title,
			},
		})
	}
	return ticket.Clone(), nil
}

func (s *TicketService) createOnce(ctx context.Context, msg *domain.IntakeMessage) (*domain.Ticket, bool, error) {
	unlock := s.locks.Lock("message:" + msg.ID)
	defer unlock()

	existing, err := s.tickets.GetByIntakeMessageID(ctx, msg.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, apperrors.MapError(err)
	}

	now := s.now().UTC()
	category := s.ticketCategory(msg)
	ticket := &domain.Ticket{
		ID:               uuid.NewString(),
		Title:            ticketTitle(msg),
		Description:      ticketDescription(msg),
		Category:         category,
		Priority:         msg.Priority,
		Status:           domain.TicketStatusOpen,
		ReporterID:       msg.MaskedSender,
		SLADeadline:      s.sla.ResolutionDeadline(msg.Priority, category, now),
		ResponseDeadline: s.sla.ResponseDeadline(msg.Priority, category, now),
		IntakeMessageID:  msg.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if s.assignment != nil {
		assignee, err := s.assignment.SelectAssignee(ctx, category)
		if err != nil {
			return nil, false, err
		}
		ticket.AssigneeID = &assignee
	}

	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Next(ctx, now)
		if err != nil {
			return nil, false, apperrors.MapError(err)
		}
		ticket.Number = number

		err = s.tickets.Create(ctx, ticket)
		switch {
		case err == nil:
			return ticket, true, nil
		case errors.Is(err, repository.ErrDuplicateTicketNumber) && attempt < maxTicketNumberAttempts:
			s.logger.Warn("ticket number already used; drawing another",
				zap.String("message_id", msg.ID),
				zap.String("number", number),
				zap.Int("attempt", attempt))
		case errors.Is(err, repository.ErrDuplicateTicket):
			existing, getErr := s.tickets.GetByIntakeMessageID(ctx, msg.ID)
			if getErr != nil {
				return nil, false, apperrors.MapError(getErr)
			}
			return existing, false, nil
		case errors.Is(err, repository.ErrDuplicateTicketNumber):
			return nil, false, apperrors.NewConflict("ticket number already used", map[string]any{"number": number})
		default:
			return nil, false, apperrors.MapError(err)
		}
	}
}

func (s *TicketService) ticketCategory(msg *domain.IntakeMessage) domain.Category {
	if msg.Classification != nil && msg.Classification.Valid() {
		return *msg.Classification
	}
	content := msg.MaskedContent
	if content == "" {
		content = msg.Content
	}
	return s.rules.Classify(content).Category
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, ticketLookupError(err, map[string]any{"ticket_id": id})
	}
	return ticket, nil
}

// GetTicketByMessage fetches the ticket created for an intake message.
func (s *TicketService) GetTicketByMessage(ctx context.Context, messageID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByIntakeMessageID(ctx, messageID)
	if err != nil {
		return nil, ticketLookupError(err, map[string]any{"message_id": messageID})
	}
	return ticket, nil
}

// ListTickets returns tickets matching filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]*domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateStatus moves a ticket through its lifecycle. staffID is empty for
// system-initiated changes. Setting the current status is a no-op.
func (s *TicketService) UpdateStatus(ctx context.Context, staffID, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket status", map[string]any{"status": newStatus})
	}

	unlock := s.locks.Lock("ticket:" + ticketID)
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		unlock()
		return nil, ticketLookupError(err, map[string]any{"ticket_id": ticketID})
	}
	oldStatus := ticket.Status
	if oldStatus == newStatus {
		unlock()
		return ticket, nil
	}
	if err := checkTransition(ticket, newStatus); err != nil {
		unlock()
		return nil, err
	}
	applyStatus(ticket, newStatus, s.now().UTC())
	err = s.tickets.Update(ctx, ticket)
	unlock()
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket status updated",
		zap.String("ticket_id", ticket.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)))
	s.publishStatusChanged(ctx, staffID, ticket, oldStatus)
	return ticket, nil
}

// Assign sets the assignee. An open ticket moves to in_progress.
func (s *TicketService) Assign(ctx context.Context, staffID, ticketID, assigneeID string) (*domain.Ticket, error) {
	if strings.TrimSpace(assigneeID) == "" {
		return nil, apperrors.NewValidationError("assignee id is required", nil)
	}
	assignee, err := s.staff.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"staff_id": assigneeID})
	}

	unlock := s.locks.Lock("ticket:" + ticketID)
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		unlock()
		return nil, ticketLookupError(err, map[string]any{"ticket_id": ticketID})
	}
	if ticket.Status.Terminal() {
		unlock()
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": ticketID, "status": ticket.Status})
	}
	oldStatus := ticket.Status
	ticket.AssigneeID = &assignee.ID
	now := s.now().UTC()
	if oldStatus == domain.TicketStatusOpen {
		applyStatus(ticket, domain.TicketStatusInProgress, now)
	} else {
		ticket.UpdatedAt = now
	}
	err = s.tickets.Update(ctx, ticket)
	unlock()
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket assigned", zap.String("ticket_id", ticket.ID), zap.String("assignee_id", assignee.ID))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		MessageID: ticket.IntakeMessageID,
		Actor:     actorFor(staffID),
		Payload:   events.TicketAssignedPayload{AssigneeStaffID: assignee.ID},
	})
	if ticket.Status != oldStatus {
		s.publishStatusChanged(ctx, staffID, ticket, oldStatus)
	}
	return ticket, nil
}

// SLADashboard aggregates SLA performance over every ticket.
func (s *TicketService) SLADashboard(ctx context.Context) (sla.Dashboard, error) {
	tickets, err := s.ListTickets(ctx, repository.TicketFilter{})
	if err != nil {
		return sla.Dashboard{}, err
	}
	return sla.Summarize(tickets, s.now()), nil
}

// Violations lists tickets past their resolution deadline, oldest deadline first.
func (s *TicketService) Violations(ctx context.Context) ([]*domain.Ticket, error) {
	tickets, err := s.ListTickets(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	return sla.Violations(tickets, s.now()), nil
}

// UpcomingDeadlines lists open tickets whose deadline falls within window.
func (s *TicketService) UpcomingDeadlines(ctx context.Context, window time.Duration) ([]*domain.Ticket, error) {
	if window <= 0 {
		return nil, apperrors.NewValidationError("window must be positive", nil)
	}
	tickets, err := s.ListTickets(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	return sla.Upcoming(tickets, s.now(), window), nil
}

// SLARules exposes the active SLA table.
func (s *TicketService) SLARules() []sla.Rule {
	return s.sla.Rules()
}

func (s *TicketService) publishStatusChanged(ctx context.Context, staffID string, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		MessageID: ticket.IntakeMessageID,
		Actor:     actorFor(staffID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorFor(staffID string) events.Actor {
	if staffID == "" {
		return events.SystemActor
	}
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
}

func ticketLookupError(err error, details map[string]any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", details)
	}
	return apperrors.MapError(err)
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusPending:    {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {},
	domain.TicketStatusClosed:     {},
}

func checkTransition(ticket *domain.Ticket, next domain.TicketStatus) error {
	details := map[string]any{"ticket_id": ticket.ID, "status": ticket.Status, "requested": next}
	if ticket.Status.Terminal() {
		return apperrors.NewConflict("ticket is closed", details)
	}
	for _, candidate := range allowedTransitions[ticket.Status] {
		if candidate == next {
			return nil
		}
	}
	return apperrors.NewConflict("invalid status transition", details)
}

func applyStatus(ticket *domain.Ticket, next domain.TicketStatus, now time.Time) {
	if ticket.Status == domain.TicketStatusOpen && ticket.FirstRespondedAt == nil {
		ticket.FirstRespondedAt = &now
	}
	if next.Terminal() {
		ticket.ResolvedAt = &now
	}
	ticket.Status = next
	ticket.UpdatedAt = now
}

var channelPrefixes = map[domain.Channel]string{
	domain.ChannelSMS:   "[SMS]",
	domain.ChannelEmail: "[이메일]",
	domain.ChannelWeb:   "[웹폼]",
	domain.ChannelCall:  "[통화]",
	domain.ChannelChat:  "[채팅]",
}

var channelLabels = map[domain.Channel]string{
	domain.ChannelSMS:   "SMS 접수",
	domain.ChannelEmail: "이메일 접수",
	domain.ChannelWeb:   "웹폼 접수",
	domain.ChannelCall:  "통화 접수",
	domain.ChannelChat:  "채팅 접수",
}

// ticketTitle is the channel prefix plus the first sentence of the masked
// content, cut to 47 runes and an ellipsis when longer than 50.
func ticketTitle(msg *domain.IntakeMessage) string {
	prefix, ok := channelPrefixes[msg.Channel]
	if !ok {
		prefix = "[접수]"
	}
	content := msg.MaskedContent
	if content == "" {
		content = msg.Content
	}
	sentence := content
	if i := strings.IndexAny(content, ".!?"); i >= 0 {
		sentence = content[:i]
	}
	sentence = strings.TrimSpace(sentence)
	if utf8.RuneCountInString(sentence) > titleMaxRunes {
		sentence = string([]rune(sentence)[:titleCutRunes]) + "..."
	}
	return prefix + " " + sentence
}

func ticketDescription(msg *domain.IntakeMessage) string {
	label, ok := channelLabels[msg.Channel]
	if !ok {
		label = string(msg.Channel)
	}
	content := msg.MaskedContent
	if content == "" {
		content = msg.Content
	}

	var b strings.Builder
	b.WriteString("**접수 정보**\n")
	fmt.Fprintf(&b, "- 채널: %s\n", label)
	fmt.Fprintf(&b, "- 발신자: %s\n", msg.MaskedSender)
	fmt.Fprintf(&b, "- 우선순위: %s\n", msg.Priority)
	fmt.Fprintf(&b, "- 접수시간: %s\n", msg.CreatedAt.In(officeZone).Format(receivedLayout))
	if msg.ApartmentUnit != nil && msg.ApartmentUnit.Formatted != "" {
		fmt.Fprintf(&b, "- 위치: %s\n", msg.ApartmentUnit.Formatted)
	}
	b.WriteString("\n**내용**\n")
	b.WriteString(content)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**원본 메시지 ID**: %s", msg.ID)
	return b.String()
}
