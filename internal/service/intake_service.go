package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/apartment"
	"github.com/spec-kit/ai-secretary/internal/classifier"
	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/events"
	"github.com/spec-kit/ai-secretary/internal/observability"
	"github.com/spec-kit/ai-secretary/internal/pii"
	"github.com/spec-kit/ai-secretary/internal/priority"
	"github.com/spec-kit/ai-secretary/internal/repository"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	statsRecent      = 10
)

// IntakeService runs the intake pipeline and owns the message lifecycle.
type IntakeService struct {
	messages   repository.MessageRepository
	masker     *pii.Masker
	parser     *apartment.Parser
	classifier *classifier.Classifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	locks      *keyedMutex
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	MessageRepo repository.MessageRepository
	Masker      *pii.Masker
	Parser      *apartment.Parser
	Classifier  *classifier.Classifier
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// IntakeInput is a raw inbound message. ReceivedAt defaults to now.
type IntakeInput struct {
	Channel    domain.Channel
	Content    string
	Sender     string
	ReceivedAt *time.Time
}

// IntakeStats summarizes stored messages.
type IntakeStats struct {
	Total  int                     `json:"total"`
	Recent []*domain.IntakeMessage `json:"-"`
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	s := &IntakeService{
		messages:   deps.MessageRepo,
		masker:     deps.Masker,
		parser:     deps.Parser,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
		locks:      newKeyedMutex(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.masker == nil {
		s.masker = pii.NewMasker(s.logger)
	}
	if s.parser == nil {
		s.parser = apartment.NewParser(s.logger)
	}
	if s.classifier == nil {
		s.classifier = classifier.New(nil, nil, classifier.Options{}, s.logger, s.metrics)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ProcessMessage masks, locates, prioritizes and stores a new message. High
// and urgent messages are classified immediately, which in turn triggers
// ticket creation through the message.classified event. Failures after the
// message is stored are logged and never fail the intake.
func (s *IntakeService) ProcessMessage(ctx context.Context, input IntakeInput) (*domain.IntakeMessage, error) {
	if err := validateIntake(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	createdAt := now
	if input.ReceivedAt != nil && !input.ReceivedAt.IsZero() {
		createdAt = input.ReceivedAt.UTC()
	}

	maskedContent := s.masker.Mask(input.Content)
	if !s.masker.ValidateMasking(input.Content, maskedContent) {
		s.logger.Warn("masked content still contains personal data", zap.String("channel", string(input.Channel)))
	}

	location := s.parser.Parse(input.Content)
	msg := &domain.IntakeMessage{
		ID:            uuid.NewString(),
		Channel:       input.Channel,
		Content:       input.Content,
		MaskedContent: maskedContent,
		Sender:        input.Sender,
		MaskedSender:  s.masker.MaskSender(input.Sender),
		Priority:      priority.Determine(input.Channel, input.Content),
		Status:        domain.MessageStatusPending,
		ApartmentUnit: apartment.Best(location),
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}

	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordIntake(string(msg.Channel), string(msg.Priority))
	s.logger.Info("intake message received",
		zap.String("message_id", msg.ID),
		zap.String("channel", string(msg.Channel)),
		zap.String("priority", string(msg.Priority)),
		zap.Bool("has_location", location.HasLocation))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventMessageReceived,
		MessageID: msg.ID,
		Actor:     events.SystemActor,
		Payload:   events.MessageReceivedPayload{Channel: msg.Channel, Priority: msg.Priority},
	})

	if !msg.Priority.Escalated() {
		return msg.Clone(), nil
	}
	if _, err := s.UpdateMessageStatus(ctx, msg.ID, domain.MessageStatusClassified); err != nil {
		s.logger.Error("auto-classification failed", zap.String("message_id", msg.ID), zap.Error(err))
		return msg.Clone(), nil
	}

	stored, err := s.messages.GetByID(ctx, msg.ID)
	if err != nil {
		s.logger.Warn("reload after classification failed", zap.String("message_id", msg.ID), zap.Error(err))
		return msg.Clone(), nil
	}
	return stored, nil
}

// UpdateMessageStatus advances a message. Moving backwards is a conflict and
// repeating the current status is a no-op. A message that reaches classified
// without a classification is classified first; the message.classified event
// fires whenever a classified message still has no ticket.
func (s *IntakeService) UpdateMessageStatus(ctx context.Context, id string, status domain.MessageStatus) (*domain.IntakeMessage, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid message status", map[string]any{"status": status})
	}

	unlock := s.locks.Lock(id)
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		unlock()
		return nil, messageLookupError(err, id)
	}
	if !msg.Status.CanAdvanceTo(status) {
		unlock()
		return nil, apperrors.NewConflict("message status cannot move backwards", map[string]any{
			"message_id": id,
			"status":     msg.Status,
			"requested":  status,
		})
	}

	classifiedNow := false
	if status != domain.MessageStatusPending && msg.Classification == nil {
		s.classify(ctx, msg)
		classifiedNow = true
	}
	changed := classifiedNow || msg.Status != status
	if changed {
		oldStatus := msg.Status
		msg.Status = status
		msg.UpdatedAt = s.now().UTC()
		if err := s.messages.Save(ctx, msg); err != nil {
			unlock()
			return nil, apperrors.MapError(err)
		}
		s.logger.Info("message status updated",
			zap.String("message_id", id),
			zap.String("old_status", string(oldStatus)),
			zap.String("new_status", string(status)))
	}
	unlock()

	if msg.TicketID == nil && (classifiedNow || status == domain.MessageStatusClassified) {
		s.publishClassified(ctx, msg)
	}
	return msg, nil
}

// ClassifyMessage re-runs classification on demand. A pending message becomes classified.
func (s *IntakeService) ClassifyMessage(ctx context.Context, id string) (*domain.IntakeMessage, error) {
	unlock := s.locks.Lock(id)
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		unlock()
		return nil, messageLookupError(err, id)
	}
	s.classify(ctx, msg)
	if msg.Status == domain.MessageStatusPending {
		msg.Status = domain.MessageStatusClassified
	}
	msg.UpdatedAt = s.now().UTC()
	err = s.messages.Save(ctx, msg)
	unlock()
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if msg.TicketID == nil {
		s.publishClassified(ctx, msg)
	}
	return msg, nil
}

// LinkTicket records the ticket created for a message. The first link wins.
func (s *IntakeService) LinkTicket(ctx context.Context, messageID, ticketID string) (*domain.IntakeMessage, error) {
	unlock := s.locks.Lock(messageID)
	defer unlock()

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, messageLookupError(err, messageID)
	}
	if msg.TicketID != nil {
		if *msg.TicketID != ticketID {
			s.logger.Warn("message already linked to another ticket",
				zap.String("message_id", messageID),
				zap.String("ticket_id", *msg.TicketID),
				zap.String("ignored_ticket_id", ticketID))
		}
		return msg, nil
	}
	msg.TicketID = &ticketID
	msg.UpdatedAt = s.now().UTC()
	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	return msg, nil
}

// GetMessage fetches a message by id.
func (s *IntakeService) GetMessage(ctx context.Context, id string) (*domain.IntakeMessage, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, messageLookupError(err, id)
	}
	return msg, nil
}

// ListMessages returns the newest messages. limit defaults to 50 and is capped at 500.
func (s *IntakeService) ListMessages(ctx context.Context, limit int) ([]*domain.IntakeMessage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	msgs, err := s.messages.List(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// Stats returns the total count and the ten most recent messages.
func (s *IntakeService) Stats(ctx context.Context) (*IntakeStats, error) {
	total, err := s.messages.Count(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	recent, err := s.messages.List(ctx, statsRecent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &IntakeStats{Total: total, Recent: recent}, nil
}

func (s *IntakeService) classify(ctx context.Context, msg *domain.IntakeMessage) {
	res := s.classifier.Classify(ctx, msg.MaskedContent)
	category := res.Category
	msg.Classification = &category
	msg.ClassificationConfidence = res.Confidence
	msg.ClassificationMethod = res.Method
	s.logger.Info("message classified",
		zap.String("message_id", msg.ID),
		zap.String("category", string(res.Category)),
		zap.Float64("confidence", res.Confidence),
		zap.String("method", string(res.Method)))
}

func (s *IntakeService) publishClassified(ctx context.Context, msg *domain.IntakeMessage) {
	s.publishEvent(ctx, events.Event{
		Type:      events.EventMessageClassified,
		MessageID: msg.ID,
		Actor:     events.SystemActor,
		Payload:   events.MessageClassifiedPayload{Message: msg.Clone()},
	})
}

func (s *IntakeService) publishEvent(ctx context.Context, event events.Event) {
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

func validateIntake(input IntakeInput) error {
	missing := []string{}
	if input.Channel == "" {
		missing = append(missing, "channel")
	}
	if strings.TrimSpace(input.Content) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(input.Sender) == "" {
		missing = append(missing, "sender")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if !input.Channel.Valid() {
		return apperrors.NewValidationError("unsupported channel", map[string]any{"channel": input.Channel})
	}
	return nil
}

func messageLookupError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("message", map[string]any{"message_id": id})
	}
	return apperrors.MapError(err)
}
