package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ai-secretary/internal/api/dto"
	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/service"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

// IntakeHandler receives resident messages from every channel.
type IntakeHandler struct {
	intake *service.IntakeService
}

// NewIntakeHandler constructs handler.
func NewIntakeHandler(intake *service.IntakeService) *IntakeHandler {
	return &IntakeHandler{intake: intake}
}

// SMS POST /api/intake/sms.
func (h *IntakeHandler) SMS(c *fiber.Ctx) error {
	var req dto.SMSRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := requireFields(map[string]string{"from": req.From, "body": req.Body}); err != nil {
		return err
	}
	return h.process(c, service.IntakeInput{Channel: domain.ChannelSMS, Content: req.Body, Sender: req.From})
}

// Email POST /api/intake/email.
func (h *IntakeHandler) Email(c *fiber.Ctx) error {
	var req dto.EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := requireFields(map[string]string{"from": req.From, "body": req.Body}); err != nil {
		return err
	}
	content := req.Body
	if subject := strings.TrimSpace(req.Subject); subject != "" {
		content = subject + "\n\n" + req.Body
	}
	return h.process(c, service.IntakeInput{Channel: domain.ChannelEmail, Content: content, Sender: req.From})
}

// Web POST /api/intake/web. The resident's name is the sender when no email
// is given.
func (h *IntakeHandler) Web(c *fiber.Ctx) error {
	var req dto.WebFormRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sender := strings.TrimSpace(req.Email)
	if sender == "" {
		sender = strings.TrimSpace(req.Name)
	}
	if err := requireFields(map[string]string{"email": sender, "message": req.Message}); err != nil {
		return err
	}
	return h.process(c, service.IntakeInput{Channel: domain.ChannelWeb, Content: req.Message, Sender: sender})
}

// Call POST /api/intake/call.
func (h *IntakeHandler) Call(c *fiber.Ctx) error {
	var req dto.CallRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := requireFields(map[string]string{"caller": req.Caller, "transcript": req.Transcript}); err != nil {
		return err
	}
	return h.process(c, service.IntakeInput{Channel: domain.ChannelCall, Content: req.Transcript, Sender: req.Caller})
}

// Chat POST /api/intake/chat.
func (h *IntakeHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := requireFields(map[string]string{"from": req.From, "message": req.Message}); err != nil {
		return err
	}
	return h.process(c, service.IntakeInput{Channel: domain.ChannelChat, Content: req.Message, Sender: req.From})
}

// CreateMessage POST /api/intake/messages.
func (h *IntakeHandler) CreateMessage(c *fiber.Ctx) error {
	var req dto.IntakeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.process(c, service.IntakeInput{
		Channel:    req.Channel,
		Content:    req.Content,
		Sender:     req.Sender,
		ReceivedAt: req.ReceivedAt,
	})
}

// ListMessages GET /api/intake/messages?limit=.
func (h *IntakeHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.intake.ListMessages(c.UserContext(), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponses(msgs)})
}

// GetMessage GET /api/intake/messages/:id.
func (h *IntakeHandler) GetMessage(c *fiber.Ctx) error {
	msg, err := h.intake.GetMessage(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponse(msg)})
}

// UpdateStatus PATCH /api/intake/messages/:id/status.
func (h *IntakeHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.MessageStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status is required", nil)
	}
	msg, err := h.intake.UpdateMessageStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponse(msg)})
}

// Classify POST /api/intake/messages/:id/classify.
func (h *IntakeHandler) Classify(c *fiber.Ctx) error {
	msg, err := h.intake.ClassifyMessage(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponse(msg)})
}

// Stats GET /api/intake/stats.
func (h *IntakeHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.intake.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.IntakeStatsResponse{
		TotalMessages:  stats.Total,
		RecentMessages: messageResponses(stats.Recent),
	}})
}

func (h *IntakeHandler) process(c *fiber.Ctx, input service.IntakeInput) error {
	msg, err := h.intake.ProcessMessage(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

func requireFields(fields map[string]string) error {
	missing := make([]string, 0, len(fields))
	for name, val := range fields {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return apperrors.NewValidationError("missing required fields: "+strings.Join(missing, ", "), map[string]any{"fields": missing})
}
